package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing store can be reached
type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.Status(fiber.StatusServiceUnavailable)
			return c.JSON(fiber.Map{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"status": "ok",
		})
	}
}
