package redis_client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/margdarshak/tracker/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const connectTimeout = 30 * time.Second

// Connect creates the shared redis client and waits for it to answer a PING
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	options := &redis.Options{
		Addr: cfg.RedisAddress,
		DB:   cfg.RedisDatabase,
	}
	if cfg.RedisPassword != "" {
		options.Password = cfg.RedisPassword
	}

	client := redis.NewClient(options)

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.MaxElapsedTime = connectTimeout

	err := backoff.RetryNotify(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(retryBackoff, ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("address", cfg.RedisAddress).Str("retry", wait.String()).Msg("Redis not reachable yet")
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	log.Info().Str("address", cfg.RedisAddress).Int("database", cfg.RedisDatabase).Msg("Connected to Redis")

	return client, nil
}
