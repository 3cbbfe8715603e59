package handler

import (
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"

	"movie-catalog-service/internal/service"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler maps service errors to HTTP statuses. Server-side failures
// are logged and reported to Sentry.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code, msg := classify(err)
		if code >= fiber.StatusInternalServerError {
			log.ErrorContext(c.Context(), "request failed",
				"method", c.Method(), "path", c.Path(), "status", code, "error", err)
			report(c, err)
		}
		return c.Status(code).JSON(ErrorResponse{Error: msg})
	}
}

func classify(err error) (int, string) {
	var (
		verr *service.ValidationError
		ferr *fiber.Error
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound, "movie not found"
	case errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict, "movie already exists"
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return fiber.StatusBadGateway, "movie provider unavailable, try again later"
	case errors.As(err, &ferr):
		return ferr.Code, ferr.Message
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func report(c fiber.Ctx, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("method", c.Method())
		scope.SetTag("route", c.Route().Path)
	})
	hub.CaptureException(err)
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
