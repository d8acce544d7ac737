package routes

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/tripsession"
	"github.com/margdarshak/tracker/pkg/validation"
	"github.com/rs/zerolog/log"
)

func noScheduleMessage(vehicleNumber string) string {
	return fmt.Sprintf("No schedule found for vehicle: %s", vehicleNumber)
}

// describeError maps a service error to the status and message reported to the client
func describeError(err error, vehicleNumber string) (int, string) {
	var validationErr *validation.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Message
	case errors.Is(err, tripsession.ErrNoSchedule), errors.Is(err, liveupdates.ErrNoSchedule):
		return fiber.StatusBadRequest, noScheduleMessage(vehicleNumber)
	case errors.Is(err, locationstore.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "Location store unavailable"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

func sendError(c *fiber.Ctx, err error, vehicleNumber string) error {
	status, message := describeError(err, vehicleNumber)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}

	c.Status(status)
	return c.JSON(fiber.Map{
		"message": message,
	})
}
