package httpapi

import (
	"context"
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/dht-data/internal/common"
	"github.com/i474232898/dht-data/internal/metrics"
	"github.com/i474232898/dht-data/internal/sensor"
)

var validate = validator.New()

// Options selects the optional routes.
type Options struct {
	WriteEndpoint  bool
	LogPassthrough bool
	Metrics        bool
	LogFile        string

	// BaseContext bounds submissions; it should end when the writer stops.
	// Defaults to context.Background().
	BaseContext context.Context
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// Unknown paths and methods answer 404 with an empty body.
func RegisterRoutes(app *fiber.App, service *sensor.Service, gateway *sensor.Gateway, opts Options) {
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	app.Get("/", func(c *fiber.Ctx) error {
		order := sensor.Ascending
		if c.Query("order") == "desc" || common.HasAny(c.OriginalURL(), "descending") {
			order = sensor.Descending
		}
		return c.JSON(service.List(order))
	})

	app.Get("/last", func(c *fiber.Ctx) error {
		entry, err := service.Last()
		if err != nil {
			if errors.Is(err, sensor.ErrEmpty) {
				return empty(c, fiber.StatusNotFound)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read history")
		}
		return c.JSON(entry)
	})

	if opts.WriteEndpoint && gateway != nil {
		app.Post("/new", func(c *fiber.Ctx) error {
			var req newReadingRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "temperature, humidity and password are required")
			}

			reading := sensor.NewReading(*req.Temperature, *req.Humidity)
			if err := gateway.Submit(baseCtx, reading, *req.Password); err != nil {
				if errors.Is(err, sensor.ErrForbidden) {
					return empty(c, fiber.StatusForbidden)
				}
				return fiber.NewError(fiber.StatusServiceUnavailable, "reading not accepted")
			}
			return empty(c, fiber.StatusCreated)
		})
	}

	app.Get("/logs", func(c *fiber.Ctx) error {
		if !opts.LogPassthrough || opts.LogFile == "" {
			return empty(c, fiber.StatusNotFound)
		}
		f, err := os.Open(opts.LogFile)
		if err != nil {
			return empty(c, fiber.StatusNotFound)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendStream(f)
	})

	if opts.Metrics {
		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status":  "ok",
				"service": "dht-data",
				"records": service.Len(),
			})
		})
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Use(func(c *fiber.Ctx) error {
		return empty(c, fiber.StatusNotFound)
	})
}

// newReadingRequest is the body of POST /new.
type newReadingRequest struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required"`
	Password    *string  `json:"password" validate:"required"`
}

// empty answers status without a body.
func empty(c *fiber.Ctx, status int) error {
	c.Status(status)
	return nil
}
