package main

import (
	"os"
	"time"

	"github.com/margdarshak/tracker/pkg/api"
	"github.com/margdarshak/tracker/pkg/events"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv(util.EnvironmentKey("LOG_FORMAT")) != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv(util.EnvironmentKey("DEBUG")) == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "tracker",
		Description: "Vehicle trip tracking - schedule lookup, trip sessions and live location updates",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			schedule.RegisterCLI(),
			events.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
