package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/margdarshak/tracker/pkg/api/routes"
	"github.com/margdarshak/tracker/pkg/connections"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/metrics"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/tripsession"
	"github.com/rs/zerolog/log"
)

// Services are the collaborators the HTTP and websocket handlers are built from
type Services struct {
	Index       *schedule.Index
	Store       locationstore.Store
	Trips       *tripsession.Manager
	Broadcaster *liveupdates.Broadcaster
	Registry    *connections.Registry
	Metrics     *metrics.Collector

	ObserverBuffer int
}

func NewApp(services Services) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger(log.Logger))

	webApp.Get("version", routes.APIVersion)
	webApp.Get("health", routes.Health(services.Store))

	if services.Metrics != nil {
		webApp.Get("metrics", adaptor.HTTPHandler(services.Metrics.Handler()))
	}

	group := webApp.Group("/api")

	routes.TripsRouter(group.Group("/trips"), services.Trips, services.Broadcaster)
	routes.LocationsRouter(group.Group("/locations"), services.Broadcaster)
	routes.SchedulesRouter(group.Group("/schedules"), services.Index)

	routes.GTFSRealtimeRouter(webApp.Group("/gtfs-rt"), services.Index, services.Broadcaster)

	var connectionRecorder routes.ConnectionRecorder
	if services.Metrics != nil {
		connectionRecorder = services.Metrics
	}
	routes.LocationStreamRouter(webApp.Group("/ws"), routes.LocationStream{
		Broadcaster:    services.Broadcaster,
		Registry:       services.Registry,
		Recorder:       connectionRecorder,
		ObserverBuffer: services.ObserverBuffer,
	})

	return webApp
}
