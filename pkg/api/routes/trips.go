package routes

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/margdarshak/tracker/pkg/tripsession"
)

func TripsRouter(router fiber.Router, trips *tripsession.Manager, broadcaster *liveupdates.Broadcaster) {
	router.Post("/start", startTrip(trips))
	router.Get("/location/:vehicleNumber", getVehicleLocation(broadcaster))
	router.Get("/:tripId", getTripSession(trips))
}

func startTrip(trips *tripsession.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var request tripsession.StartRequest
		if err := c.BodyParser(&request); err != nil {
			c.Status(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"message": "Request body is not valid JSON",
			})
		}

		result, err := trips.StartTrip(c.UserContext(), request)
		if err != nil {
			return sendError(c, err, request.VehicleNumber)
		}

		c.Status(fiber.StatusCreated)
		return c.JSON(fiber.Map{
			"message": "Trip started successfully",
			"tripId":  result.TripID,
		})
	}
}

func getTripSession(trips *tripsession.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tripID := c.Params("tripId")

		session, found, err := trips.Session(c.UserContext(), tripID)
		if err != nil {
			return sendError(c, err, "")
		}

		if !found {
			c.Status(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"message": fmt.Sprintf("No started trip found with id: %s", tripID),
			})
		}

		return c.JSON(session)
	}
}

func getVehicleLocation(broadcaster *liveupdates.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicleNumber := c.Params("vehicleNumber")

		fields, found, err := broadcaster.Query(c.UserContext(), vehicleNumber)
		if err != nil {
			return sendError(c, err, vehicleNumber)
		}

		if !found {
			c.Status(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"message": fmt.Sprintf("No location data found for vehicle: %s", vehicleNumber),
			})
		}

		return c.JSON(fields)
	}
}
