package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/margdarshak/tracker/pkg/gtfsrt"
	"github.com/margdarshak/tracker/pkg/schedule"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

func GTFSRealtimeRouter(router fiber.Router, index *schedule.Index, source gtfsrt.LocationSource) {
	router.Get("/vehicle-positions", getVehiclePositions(index, source))
}

func getVehiclePositions(index *schedule.Index, source gtfsrt.LocationSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feed, err := gtfsrt.BuildVehiclePositions(c.UserContext(), index, source, time.Now())
		if err != nil {
			return sendError(c, err, "")
		}

		if c.Query("format") == "json" {
			body, err := protojson.Marshal(feed)
			if err != nil {
				return err
			}

			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		}

		body, err := proto.Marshal(feed)
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, "application/x-protobuf")
		return c.Send(body)
	}
}
