package api

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/margdarshak/tracker/pkg/config"
	"github.com/margdarshak/tracker/pkg/connections"
	"github.com/margdarshak/tracker/pkg/events"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/metrics"
	"github.com/margdarshak/tracker/pkg/redis_client"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/tripsession"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the trip tracking web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					client, err := redis_client.Connect(c.Context, cfg)
					if err != nil {
						return err
					}
					defer client.Close()

					collector := metrics.NewCollector()
					store := locationstore.NewRedisStore(client)

					index := schedule.NewIndex(cfg.Location)
					if report, err := index.LoadFile(cfg.ScheduleFile); err != nil {
						log.Error().Err(err).Str("file", cfg.ScheduleFile).Msg("Failed to load schedule feed, starting with no trips")
					} else {
						collector.ScheduleLoaded(report.Loaded, len(report.Skipped))
					}

					if cfg.ScheduleRefresh != "" {
						refresher, err := schedule.NewRefresher(index, cfg.ScheduleFile, cfg.ScheduleRefresh)
						if err != nil {
							return err
						}
						refresher.OnLoad = func(report schedule.LoadReport) {
							collector.ScheduleLoaded(report.Loaded, len(report.Skipped))
						}

						refresher.Start()
						defer refresher.Stop()
					}

					broadcasterOptions := []liveupdates.Option{liveupdates.WithRecorder(collector)}

					if cfg.EventsQueue != "" {
						connection, err := rmq.OpenConnectionWithRedisClient("tracker-api", client, nil)
						if err != nil {
							return err
						}

						publisher, err := events.NewQueuePublisher(connection, cfg.EventsQueue)
						if err != nil {
							return err
						}
						broadcasterOptions = append(broadcasterOptions, liveupdates.WithPublisher(publisher))

						log.Info().Str("queue", cfg.EventsQueue).Msg("Publishing location events")
					}

					registry := connections.NewRegistry()

					webApp := NewApp(Services{
						Index:          index,
						Store:          store,
						Trips:          tripsession.NewManager(index, store, tripsession.WithRecorder(collector)),
						Broadcaster:    liveupdates.New(index, store, registry, broadcasterOptions...),
						Registry:       registry,
						Metrics:        collector,
						ObserverBuffer: cfg.ObserverBuffer,
					})

					serverErr := make(chan error, 1)
					go func() {
						log.Info().Str("listen", c.String("listen")).Msg("Starting web api")
						serverErr <- webApp.Listen(c.String("listen"))
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					select {
					case err := <-serverErr:
						return err
					case <-signals: // wait for signal
					}

					ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()

					return webApp.ShutdownWithContext(ctx)
				},
			},
		},
	}
}
