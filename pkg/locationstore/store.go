package locationstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned whenever the shared store could not complete a call.
// The write (or read) did not happen and is not retried.
var ErrUnavailable = errors.New("persistence unavailable")

const (
	tripSchedulePrefix = "trip_schedule:"
	locationPrefix     = "location:"
	tripLocationPrefix = "trip_location:"
)

// TripScheduleKey is the hash holding a started trip's session snapshot
func TripScheduleKey(tripID string) string {
	return tripSchedulePrefix + tripID
}

// LocationKey is the hash holding a vehicle's latest fix
func LocationKey(vehicleNumber string) string {
	return locationPrefix + vehicleNumber
}

// TripLocationKey is the hash holding the latest fix streamed for a trip
func TripLocationKey(tripID string) string {
	return tripLocationPrefix + tripID
}

// Store is a shared hash-per-key store
type Store interface {
	// SetFields writes all fields in a single call, overwriting existing values
	SetFields(ctx context.Context, key string, fields map[string]string) error
	// GetAllFields returns an empty map when the key does not exist
	GetAllFields(ctx context.Context, key string) (map[string]string, error)
	Ping(ctx context.Context) error
}

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]interface{}, 0, len(fields)*2)
	for _, name := range names {
		values = append(values, name, fields[name])
	}

	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("%w: hset %s: %v", ErrUnavailable, key, err)
	}

	return nil
}

func (s *RedisStore) GetAllFields(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %v", ErrUnavailable, key, err)
	}

	return fields, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}
