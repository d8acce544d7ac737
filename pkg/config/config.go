package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/margdarshak/tracker/pkg/util"
)

const (
	defaultRedisAddress   = "localhost:6379"
	defaultScheduleFile   = "schedules.csv"
	defaultObserverBuffer = 16
)

type Config struct {
	RedisAddress  string
	RedisPassword string
	RedisDatabase int

	ScheduleFile    string
	ScheduleRefresh string
	Location        *time.Location

	EventsQueue string

	ObserverBuffer int

	LogJSON bool
	Debug   bool
}

// Load reads the .env file (if any) and then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	return FromEnvironment(util.GetEnvironmentVariables())
}

func FromEnvironment(env map[string]string) (*Config, error) {
	get := func(name string) string {
		return strings.TrimSpace(env[util.EnvironmentKey(name)])
	}

	cfg := &Config{
		RedisAddress:    defaultRedisAddress,
		RedisPassword:   get("REDIS_PASSWORD"),
		ScheduleFile:    defaultScheduleFile,
		ScheduleRefresh: get("SCHEDULE_REFRESH"),
		Location:        time.Local,
		EventsQueue:     get("EVENTS_QUEUE"),
		ObserverBuffer:  defaultObserverBuffer,
		LogJSON:         get("LOG_FORMAT") == "JSON",
		Debug:           get("DEBUG") == "YES",
	}

	if v := get("REDIS_ADDRESS"); v != "" {
		cfg.RedisAddress = v
	}

	if v := get("REDIS_DATABASE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", util.EnvironmentKey("REDIS_DATABASE"), v)
		}
		cfg.RedisDatabase = n
	}

	if v := get("SCHEDULE_FILE"); v != "" {
		cfg.ScheduleFile = v
	}

	if v := get("TIMEZONE"); v != "" {
		location, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", util.EnvironmentKey("TIMEZONE"), err)
		}
		cfg.Location = location
	}

	if v := get("OBSERVER_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s: %q", util.EnvironmentKey("OBSERVER_BUFFER"), v)
		}
		cfg.ObserverBuffer = n
	}

	return cfg, nil
}
