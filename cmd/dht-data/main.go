package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/i474232898/dht-data/internal/api/http"
	"github.com/i474232898/dht-data/internal/common"
	"github.com/i474232898/dht-data/internal/config"
	"github.com/i474232898/dht-data/internal/scheduler"
	"github.com/i474232898/dht-data/internal/sensor"
	"github.com/i474232898/dht-data/internal/sensor/source"
	"github.com/i474232898/dht-data/internal/store"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until shutdown or a fatal error.
func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// History: reload what was persisted, then keep it bounded in memory.
	files := store.NewFileStore(cfg.DataPath)
	ring := store.NewRingStore(cfg.StoreCapacity, files.Load())
	log.Printf("INFO: saving records to %s", files.Path())

	service := sensor.NewService(ring, files, sensor.WithZone(cfg.Location()))
	gateway := sensor.NewGateway(service, cfg.SharedSecret)

	// Shared HTTP client for outbound sensor calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var src sensor.Source
	if cfg.SensorURL != "" {
		src = source.NewHTTPSource(httpClient, cfg.SensorURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		service.Run(ctx)
		return nil
	})

	sched := scheduler.New(src, service, cfg.PollInterval, cfg.RetryInterval)
	if err := sched.Start(ctx); err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "dht-data",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service, gateway, httpapi.Options{
		WriteEndpoint:  cfg.Features.WriteEndpoint,
		LogPassthrough: cfg.Features.LogPassthrough,
		Metrics:        cfg.Features.Metrics,
		LogFile:        cfg.LogFile,
		BaseContext:    ctx,
	})

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("INFO: starting server %s at %s (write endpoint: %t, logs: %t, metrics: %t)",
		version, addr, cfg.Features.WriteEndpoint, cfg.Features.LogPassthrough, cfg.Features.Metrics)
	if cfg.SharedSecret == config.DefaultSecret {
		log.Printf("INFO: using default shared secret %q", config.DefaultSecret)
	} else {
		log.Printf("INFO: using shared secret %s", common.MaskSecret(cfg.SharedSecret))
	}

	g.Go(func() error {
		if err := app.Listen(addr); err != nil {
			return err
		}
		if ctx.Err() == nil {
			return errors.New("server socket closed unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
