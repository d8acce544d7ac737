package locationstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), server
}

func TestKeyspaces(t *testing.T) {
	assert.Equal(t, "trip_schedule:T1", TripScheduleKey("T1"))
	assert.Equal(t, "location:KA01AB1234", LocationKey("KA01AB1234"))
	assert.Equal(t, "trip_location:T1", TripLocationKey("T1"))
}

func TestSetAndGetAllFields(t *testing.T) {
	store, server := newTestStore(t)
	ctx := context.Background()

	err := store.SetFields(ctx, LocationKey("X"), map[string]string{
		"vehicleNumber": "X",
		"latitude":      "1",
		"longitude":     "2",
	})
	require.NoError(t, err)

	assert.Equal(t, "1", server.HGet("location:X", "latitude"))

	fields, err := store.GetAllFields(ctx, LocationKey("X"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"vehicleNumber": "X", "latitude": "1", "longitude": "2"}, fields)
}

func TestSetFieldsOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetFields(ctx, "location:X", map[string]string{"latitude": "1", "longitude": "2"}))
	require.NoError(t, store.SetFields(ctx, "location:X", map[string]string{"latitude": "5"}))

	fields, err := store.GetAllFields(ctx, "location:X")
	require.NoError(t, err)
	assert.Equal(t, "5", fields["latitude"])
	assert.Equal(t, "2", fields["longitude"])
}

func TestGetAllFieldsMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	fields, err := store.GetAllFields(context.Background(), "location:nobody")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	store, server := newTestStore(t)
	ctx := context.Background()

	server.SetError("ERR store offline")

	err := store.SetFields(ctx, "location:X", map[string]string{"latitude": "1"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = store.GetAllFields(ctx, "location:X")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, store.Ping(ctx), ErrUnavailable)
}
