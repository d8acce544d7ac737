package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/margdarshak/tracker/pkg/liveupdates"
)

func LocationsRouter(router fiber.Router, broadcaster *liveupdates.Broadcaster) {
	router.Post("/", submitLocation(broadcaster))
}

func submitLocation(broadcaster *liveupdates.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var message liveupdates.Message
		if err := c.BodyParser(&message); err != nil {
			c.Status(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"message": "Request body is not valid JSON",
			})
		}

		fix, err := broadcaster.Submit(c.UserContext(), message)
		if err != nil {
			return sendError(c, err, message.VehicleNumber)
		}

		return c.JSON(fix)
	}
}
