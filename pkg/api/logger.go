package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// NewLogger logs one line per request. Stream upgrades carry their session token and
// vehicle routes their vehicle number.
func NewLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		startTime := time.Now()
		err = c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
		}

		code := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			code = fiberErr.Code
		}

		ipAddress := c.IP()
		if forwardedFor := c.Get(fiber.HeaderXForwardedFor, ""); forwardedFor != "" {
			ipAddress = forwardedFor
		}

		fields := logger.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", c.Route().Path).
			Str("ip", ipAddress).
			Dur("latency", time.Since(startTime)).
			Int("bytes", len(c.Response().Body()))

		if vehicleNumber := c.Params("vehicleNumber"); vehicleNumber != "" {
			fields = fields.Str("vehicle", vehicleNumber)
		}
		if token := c.Query("token"); token != "" {
			fields = fields.Str("token", token)
		}

		requestLogger := fields.Logger()

		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			requestLogger.Warn().Msg(msg)
		case code >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg(msg)
		default:
			requestLogger.Debug().Msg(msg)
		}

		return err
	}
}
