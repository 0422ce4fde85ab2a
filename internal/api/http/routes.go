package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-dashboard/internal/auth"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Dashboard is the part of the orchestrator the routes drive.
type Dashboard interface {
	Search(ctx context.Context, city string) (weather.Snapshot, error)
	AddFavorite(ctx context.Context, city string) error
	RemoveFavorite(ctx context.Context, city string) error
	SetChartRange(days int) error
	ViewState() orchestrator.ViewState
}

// Authenticator performs the login flows.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (session.Identity, error)
	Register(ctx context.Context, in auth.RegisterInput) error
	Logout()
}

// NewApp creates the Fiber app with the centralized error handler.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		UnescapePath:          true,
		Immutable:             true,
		ErrorHandler:          errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var fe *fiber.Error
	var we *weather.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &we):
		code = statusFor(we)
		msg = we.Message()
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": msg,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, weather.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, weather.ErrUnauthenticated), errors.Is(err, weather.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, weather.ErrDuplicate):
		return fiber.StatusConflict
	case errors.Is(err, weather.ErrLookupFailed), errors.Is(err, weather.ErrFetch):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RegisterMetrics exposes reg on /metrics.
func RegisterMetrics(app *fiber.App, reg *prometheus.Registry) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
}

var validate = validator.New()

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type cityRequest struct {
	City string `json:"city" validate:"required"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dashboard Dashboard, authn Authenticator) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/view", func(c *fiber.Ctx) error {
		return c.JSON(dashboard.ViewState())
	})

	v1.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "username and password are required")
		}
		identity, err := authn.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(identity)
	})

	v1.Post("/register", func(c *fiber.Ctx) error {
		var req auth.RegisterInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := authn.Register(c.UserContext(), req); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Registration successful! Please login."})
	})

	v1.Post("/logout", func(c *fiber.Ctx) error {
		authn.Logout()
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/weather/:city", func(c *fiber.Ctx) error {
		snapshot, err := dashboard.Search(c.UserContext(), c.Params("city"))
		if err != nil {
			return err
		}
		return c.JSON(snapshot)
	})

	v1.Post("/favorites", func(c *fiber.Ctx) error {
		var req cityRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "city is required")
		}
		if err := dashboard.AddFavorite(c.UserContext(), req.City); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/favorites/:city", func(c *fiber.Ctx) error {
		if err := dashboard.RemoveFavorite(c.UserContext(), c.Params("city")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/chart", func(c *fiber.Ctx) error {
		days, err := strconv.Atoi(c.Query("days"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "days must be an integer")
		}
		if err := dashboard.SetChartRange(days); err != nil {
			return err
		}
		return c.JSON(dashboard.ViewState().Chart)
	})
}
