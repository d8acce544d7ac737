package events

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/margdarshak/tracker/pkg/config"
	"github.com/margdarshak/tracker/pkg/consumer"
	"github.com/margdarshak/tracker/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const (
	defaultQueueName = "location-events"
	numConsumers     = 2
	batchSize        = 20
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Consume the location events queue",
		Subcommands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "log location events as they are published",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "queue",
						Usage: "queue name (defaults to the configured events queue)",
					},
					&cli.StringFlag{
						Name:  "stats-listen",
						Usage: "listen address for the queue stats page",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					queueName := c.String("queue")
					if queueName == "" {
						queueName = cfg.EventsQueue
					}
					if queueName == "" {
						queueName = defaultQueueName
					}

					client, err := redis_client.Connect(c.Context, cfg)
					if err != nil {
						return err
					}
					defer client.Close()

					connection, err := rmq.OpenConnectionWithRedisClient("tracker-events", client, nil)
					if err != nil {
						return err
					}

					redisConsumer := &consumer.RedisConsumer{
						QueueName:       queueName,
						NumberConsumers: numConsumers,
						BatchSize:       batchSize,
						Timeout:         2 * time.Second,
						Consumer:        NewLogConsumer(queueName),
					}
					if err := redisConsumer.Start(connection); err != nil {
						return err
					}

					if statsListen := c.String("stats-listen"); statsListen != "" {
						go func() {
							mux := http.NewServeMux()
							mux.Handle("/stats", consumer.NewStatsHandler(connection))

							log.Info().Msgf("Stats server listening on http://%s/stats", statsListen)
							if err := http.ListenAndServe(statsListen, mux); err != nil {
								log.Error().Err(err).Msg("Stats server stopped")
							}
						}()
					}

					log.Info().Str("queue", queueName).Msg("Tailing location events")

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-connection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}

