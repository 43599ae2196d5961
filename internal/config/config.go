package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataFile = ".local/dht-data.json"
	DefaultPort     = "8888"
	DefaultSecret   = "password"
	DefaultLogFile  = "/root/.pm2/logs/DHT-DATA-error.log"
	DefaultTimezone = "Europe/Paris"
	DefaultCapacity = 144
)

var validate = validator.New()

// Features selects the optional parts of the HTTP surface.
type Features struct {
	WriteEndpoint  bool `yaml:"write_endpoint"`
	LogPassthrough bool `yaml:"log_passthrough"`
	Metrics        bool `yaml:"metrics"`
}

type AppConfig struct {
	// SensorURL is polled for readings; empty disables polling.
	SensorURL string `yaml:"sensor_url" validate:"omitempty,url"`
	DataPath  string `yaml:"data_path" validate:"required"`
	Port      string `yaml:"port" validate:"required,numeric"`

	// SharedSecret guards the write endpoint.
	SharedSecret string `yaml:"shared_secret" validate:"required"`

	// LogFile is streamed by /logs when log passthrough is enabled.
	LogFile  string `yaml:"log_file"`
	Timezone string `yaml:"timezone" validate:"required"`

	HTTPTimeout   time.Duration `yaml:"http_timeout" validate:"gte=0"`
	PollInterval  time.Duration `yaml:"poll_interval" validate:"gt=0"`
	RetryInterval time.Duration `yaml:"retry_interval" validate:"gt=0"`

	// StoreCapacity bounds the in-memory history.
	StoreCapacity int `yaml:"store_capacity" validate:"gt=0"`

	Features Features `yaml:"features"`
}

// Defaults returns the configuration used when nothing else is supplied.
func Defaults() *AppConfig {
	return &AppConfig{
		DataPath:      defaultDataPath(),
		Port:          DefaultPort,
		SharedSecret:  DefaultSecret,
		LogFile:       DefaultLogFile,
		Timezone:      DefaultTimezone,
		HTTPTimeout:   30 * time.Second,
		PollInterval:  600 * time.Second,
		RetryInterval: 60 * time.Second,
		StoreCapacity: DefaultCapacity,
		Features: Features{
			WriteEndpoint: true,
		},
	}
}

// Load builds the configuration from, in increasing precedence: defaults, the
// YAML file named by CONFIG_FILE, the environment (.env included) and the
// positional arguments [sensor-url] [data-file] [port] [secret].
func Load(args []string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	cfg.applyArgs(args)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) loadEnv() error {
	c.SensorURL = getenvDefault("SENSOR_URL", c.SensorURL)
	c.DataPath = getenvDefault("DATA_PATH", c.DataPath)
	c.Port = getenvDefault("PORT", c.Port)
	c.SharedSecret = getenvDefault("SHARED_SECRET", c.SharedSecret)
	c.LogFile = getenvDefault("LOG_FILE", c.LogFile)
	c.Timezone = getenvDefault("DISPLAY_TZ", c.Timezone)

	c.Features.WriteEndpoint = getenvBool("WRITE_ENDPOINT", c.Features.WriteEndpoint)
	c.Features.LogPassthrough = getenvBool("LOG_PASSTHROUGH", c.Features.LogPassthrough)
	c.Features.Metrics = getenvBool("METRICS_ENABLED", c.Features.Metrics)

	var err error
	if c.StoreCapacity, err = getenvInt("STORE_CAPACITY", c.StoreCapacity); err != nil {
		return err
	}
	if c.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.PollInterval, err = getenvDuration("POLL_INTERVAL", c.PollInterval); err != nil {
		return err
	}
	if c.RetryInterval, err = getenvDuration("RETRY_INTERVAL", c.RetryInterval); err != nil {
		return err
	}
	return nil
}

func (c *AppConfig) applyArgs(args []string) {
	targets := []*string{&c.SensorURL, &c.DataPath, &c.Port, &c.SharedSecret}
	for i, arg := range args {
		if i >= len(targets) {
			break
		}
		if arg != "" {
			*targets[i] = arg
		}
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("ERROR: unknown timezone %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataFile
	}
	return filepath.Join(home, DefaultDataFile)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
