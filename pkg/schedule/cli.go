package schedule

import (
	"fmt"
	"time"

	"github.com/kr/pretty"
	"github.com/margdarshak/tracker/pkg/config"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	fileFlag := &cli.StringFlag{
		Name:  "file",
		Usage: "schedule feed to read (defaults to the configured schedule file)",
	}

	return &cli.Command{
		Name:  "schedule",
		Usage: "Inspect the trip schedule feed",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "load the feed and report skipped records",
				Flags: []cli.Flag{fileFlag},
				Action: func(c *cli.Context) error {
					index, path, err := loadFromCLI(c)
					if err != nil {
						return err
					}

					report, err := index.LoadFile(path)
					if err != nil {
						return err
					}

					fmt.Printf("%s: %d trips for %d vehicles, %d records skipped\n", path, report.Loaded, len(index.Vehicles()), len(report.Skipped))
					for _, problem := range report.Skipped {
						fmt.Println("  " + problem.String())
					}

					return nil
				},
			},
			{
				Name:  "resolve",
				Usage: "show which trip a vehicle is on",
				Flags: []cli.Flag{
					fileFlag,
					&cli.StringFlag{
						Name:     "vehicle",
						Usage:    "vehicle number",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "at",
						Usage: "local date-time to resolve at (defaults to now)",
					},
				},
				Action: func(c *cli.Context) error {
					index, path, err := loadFromCLI(c)
					if err != nil {
						return err
					}

					if _, err := index.LoadFile(path); err != nil {
						return err
					}

					now := time.Now()
					if at := c.String("at"); at != "" {
						now, err = util.ParseLocalDateTime(at, index.Location())
						if err != nil {
							return fmt.Errorf("invalid --at value %q", at)
						}
					}

					trip, found := index.Resolve(c.String("vehicle"), now)
					if !found {
						log.Warn().Str("vehicle", c.String("vehicle")).Msg("No schedule found for vehicle")
						return nil
					}

					pretty.Println(trip)

					return nil
				},
			},
		},
	}
}

func loadFromCLI(c *cli.Context) (*Index, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}

	path := c.String("file")
	if path == "" {
		path = cfg.ScheduleFile
	}

	return NewIndex(cfg.Location), path, nil
}
