package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/i474232898/dht-data/internal/sensor"
)

var validate = validator.New()

// HTTPSource fetches readings from a sensor exposing its current values as JSON.
type HTTPSource struct {
	name     string
	endpoint string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	redactor *strings.Replacer
}

// NewHTTPSource creates an HTTPSource polling endpoint with client.
func NewHTTPSource(client *http.Client, endpoint string) *HTTPSource {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dht-sensor",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("source: circuit %s %s -> %s", name, from, to)
		},
	})

	return &HTTPSource{
		name:     "dht-sensor",
		endpoint: endpoint,
		client:   client,
		circuit:  cb,
		redactor: redactor(endpoint),
	}
}

func (s *HTTPSource) Name() string {
	return s.name
}

// sensorPayload is the body served by the sensor firmware.
// Only temperature and humidity are required; the other keys repeat them.
type sensorPayload struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required"`
}

// Fetch performs one blocking GET against the sensor. Returned errors never
// contain the endpoint.
func (s *HTTPSource) Fetch(ctx context.Context) (sensor.Reading, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequest(ctx, s.client, s.circuit, buildRequest)
	if err != nil {
		return sensor.Reading{}, redact(s.redactor, err)
	}
	defer resp.Body.Close()

	var payload sensorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return sensor.Reading{}, redact(s.redactor, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	if err := validate.Struct(payload); err != nil {
		return sensor.Reading{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return sensor.NewReading(*payload.Temperature, *payload.Humidity), nil
}
