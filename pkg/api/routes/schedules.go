package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/tripsession"
)

func SchedulesRouter(router fiber.Router, index *schedule.Index) {
	router.Get("/:vehicleNumber", getVehicleSchedule(index, time.Now))
}

func getVehicleSchedule(index *schedule.Index, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicleNumber := c.Params("vehicleNumber")

		trip, found := index.Resolve(vehicleNumber, now())
		if !found {
			c.Status(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"message": noScheduleMessage(vehicleNumber),
			})
		}

		return c.JSON(tripsession.FromTrip(trip))
	}
}
