package liveupdates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/margdarshak/tracker/pkg/connections"
	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/validation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

const testFeed = "tripId,vehicleNumber,startTime,endTime,origin,destination,route\n" +
	"T100,KA01AB1234,2024-01-01T09:45:00,2024-01-01T11:15:00,Majestic,Electronic City,500D\n"

type collectingObserver struct {
	mu       sync.Mutex
	messages []LocationFix
}

func (o *collectingObserver) Send(message []byte) error {
	var fix LocationFix
	if err := json.Unmarshal(message, &fix); err != nil {
		return err
	}

	o.mu.Lock()
	o.messages = append(o.messages, fix)
	o.mu.Unlock()

	return nil
}

func (o *collectingObserver) received() []LocationFix {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]LocationFix(nil), o.messages...)
}

type failingObserver struct{}

func (failingObserver) Send([]byte) error {
	return errors.New("connection reset")
}

type panickingObserver struct{}

func (panickingObserver) Send([]byte) error {
	panic("write on closed session")
}

type recordingPublisher struct {
	fixes []LocationFix
	err   error
}

func (p *recordingPublisher) PublishFix(_ context.Context, fix LocationFix) error {
	p.fixes = append(p.fixes, fix)
	return p.err
}

type countingRecorder struct {
	accepted map[string]int
	rejected map[string]int
	ok       int
	failed   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{accepted: map[string]int{}, rejected: map[string]int{}}
}

func (r *countingRecorder) FixAccepted(path string)  { r.accepted[path]++ }
func (r *countingRecorder) FixRejected(path string)  { r.rejected[path]++ }
func (r *countingRecorder) Delivered(count int)      { r.ok += count }
func (r *countingRecorder) DeliveryFailed(count int) { r.failed += count }

type fixture struct {
	broadcaster *Broadcaster
	registry    *connections.Registry
	server      *miniredis.Miniredis
}

func newFixture(t *testing.T, options ...Option) *fixture {
	t.Helper()

	index := schedule.NewIndex(time.UTC)
	_, err := index.Load(strings.NewReader(testFeed))
	require.NoError(t, err)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	registry := connections.NewRegistry()
	options = append([]Option{WithClock(func() time.Time { return testNow })}, options...)

	return &fixture{
		broadcaster: New(index, locationstore.NewRedisStore(client), registry, options...),
		registry:    registry,
		server:      server,
	}
}

func coordinates(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func TestSubmitRejectsInvalid(t *testing.T) {
	recorder := newCountingRecorder()
	f := newFixture(t, WithRecorder(recorder))
	ctx := context.Background()

	lat, lon := coordinates(1, 2)

	cases := map[string]struct {
		message Message
		field   string
	}{
		"empty vehicle":     {Message{VehicleNumber: "", Latitude: lat, Longitude: lon}, "vehicleNumber"},
		"missing latitude":  {Message{VehicleNumber: "X", Longitude: lon}, "latitude"},
		"missing longitude": {Message{VehicleNumber: "X", Latitude: lat}, "longitude"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.broadcaster.Submit(ctx, tc.message)

			var validationErr *validation.Error
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}

	assert.Empty(t, f.server.Keys())
	assert.Equal(t, 3, recorder.rejected[PathRequest])
}

func TestSubmitStoresAndQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lat, lon := coordinates(1, 2)
	fix, err := f.broadcaster.Submit(ctx, Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T09:30:00.000", fix.Timestamp)

	fields, found, err := f.broadcaster.Query(ctx, "X")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]string{
		"vehicleNumber": "X",
		"latitude":      "1",
		"longitude":     "2",
		"timestamp":     "2024-01-01T09:30:00.000",
	}, fields)

	parsed, err := ParseLocationFields(fields)
	require.NoError(t, err)
	assert.Equal(t, 1.0, parsed.Latitude)
	assert.Equal(t, 2.0, parsed.Longitude)
}

func TestSubmitLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lat, lon := coordinates(12.9716, 77.5946)
	_, err := f.broadcaster.Submit(ctx, Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	require.NoError(t, err)

	lat, lon = coordinates(12.9352, 77.6245)
	_, err = f.broadcaster.Submit(ctx, Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	require.NoError(t, err)

	fields, _, err := f.broadcaster.Query(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "12.9352", fields["latitude"])
	assert.Equal(t, "77.6245", fields["longitude"])
}

func TestQueryNotFound(t *testing.T) {
	f := newFixture(t)

	_, found, err := f.broadcaster.Query(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.broadcaster.Query(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSubmitStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	observer := &collectingObserver{}
	f.registry.Register("tok", observer)
	f.server.SetError("ERR store offline")

	lat, lon := coordinates(1, 2)
	_, err := f.broadcaster.Submit(context.Background(), Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	assert.ErrorIs(t, err, locationstore.ErrUnavailable)
	assert.Empty(t, observer.received())

	_, _, err = f.broadcaster.Query(context.Background(), "X")
	assert.ErrorIs(t, err, locationstore.ErrUnavailable)
}

func TestBroadcastSurvivesFailingObservers(t *testing.T) {
	recorder := newCountingRecorder()
	f := newFixture(t, WithRecorder(recorder))

	first := &collectingObserver{}
	second := &collectingObserver{}
	f.registry.Register("a", first)
	f.registry.Register("b", panickingObserver{})
	f.registry.Register("c", second)
	f.registry.Register("d", failingObserver{})

	lat, lon := coordinates(1, 2)
	_, err := f.broadcaster.Submit(context.Background(), Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	require.NoError(t, err)

	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, "X", first.received()[0].VehicleNumber)
	assert.Equal(t, 2, recorder.ok)
	assert.Equal(t, 2, recorder.failed)
}

func TestSubmitStreamWritesTripLocation(t *testing.T) {
	publisher := &recordingPublisher{}
	f := newFixture(t, WithPublisher(publisher))
	observer := &collectingObserver{}
	f.registry.Register("tok", observer)

	lat, lon := coordinates(12.9716, 77.5946)
	result, err := f.broadcaster.SubmitStream(context.Background(), Message{
		VehicleNumber: "KA01AB1234",
		Latitude:      lat,
		Longitude:     lon,
		Timestamp:     "2024-01-01T09:29:58",
	})
	require.NoError(t, err)
	assert.Equal(t, "T100", result.Fix.TripID)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 0, result.Failed)

	assert.Equal(t, "12.9716", f.server.HGet("trip_location:T100", "latitude"))
	assert.Equal(t, "77.5946", f.server.HGet("trip_location:T100", "longitude"))
	assert.Equal(t, "2024-01-01T09:29:58", f.server.HGet("trip_location:T100", "timestamp"))
	assert.Equal(t, "KA01AB1234", f.server.HGet("location:KA01AB1234", "vehicleNumber"))

	received := observer.received()
	require.Len(t, received, 1)
	assert.Equal(t, LocationFix{
		VehicleNumber: "KA01AB1234",
		Latitude:      12.9716,
		Longitude:     77.5946,
		Timestamp:     "2024-01-01T09:29:58",
		TripID:        "T100",
	}, received[0])

	require.Len(t, publisher.fixes, 1)
	assert.Equal(t, "T100", publisher.fixes[0].TripID)
}

func TestSubmitStreamNoSchedule(t *testing.T) {
	f := newFixture(t)
	observer := &collectingObserver{}
	f.registry.Register("tok", observer)

	lat, lon := coordinates(1, 2)
	_, err := f.broadcaster.SubmitStream(context.Background(), Message{VehicleNumber: "MH12ZZ0001", Latitude: lat, Longitude: lon})
	assert.ErrorIs(t, err, ErrNoSchedule)
	assert.Equal(t, "no schedule found for vehicle: MH12ZZ0001", err.Error())

	assert.Empty(t, observer.received())
	for _, key := range f.server.Keys() {
		assert.False(t, strings.HasPrefix(key, "trip_location:"), key)
	}
	assert.Equal(t, "1", f.server.HGet("location:MH12ZZ0001", "latitude"))
}

func TestSubmitStreamRejectsLikeSubmit(t *testing.T) {
	recorder := newCountingRecorder()
	f := newFixture(t, WithRecorder(recorder))

	_, lon := coordinates(1, 2)
	_, err := f.broadcaster.SubmitStream(context.Background(), Message{VehicleNumber: "KA01AB1234", Longitude: lon})

	var validationErr *validation.Error
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "latitude", validationErr.Field)
	assert.Equal(t, 1, recorder.rejected[PathStream])
	assert.Empty(t, f.server.Keys())
}

func TestPublisherFailureDoesNotFailSubmit(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("queue down")}
	f := newFixture(t, WithPublisher(publisher))

	lat, lon := coordinates(1, 2)
	_, err := f.broadcaster.Submit(context.Background(), Message{VehicleNumber: "X", Latitude: lat, Longitude: lon})
	require.NoError(t, err)
	assert.Len(t, publisher.fixes, 1)
}

func TestConcurrentSubmitters(t *testing.T) {
	f := newFixture(t)
	observer := &collectingObserver{}
	f.registry.Register("tok", observer)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lat, lon := coordinates(float64(i), float64(i))
			_, err := f.broadcaster.SubmitStream(context.Background(), Message{VehicleNumber: "KA01AB1234", Latitude: lat, Longitude: lon})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, observer.received(), 20)
}
