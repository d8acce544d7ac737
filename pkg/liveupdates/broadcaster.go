package liveupdates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/margdarshak/tracker/pkg/connections"
	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/margdarshak/tracker/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

// ErrNoSchedule is returned by the streaming path when the vehicle has no scheduled trip.
// The fix is still stored under the vehicle but nothing is written for a trip or broadcast.
var ErrNoSchedule = errors.New("no schedule found")

const (
	PathRequest = "request"
	PathStream  = "stream"
)

// Publisher receives every accepted fix after it has been stored
type Publisher interface {
	PublishFix(ctx context.Context, fix LocationFix) error
}

// Recorder collects broadcaster counters
type Recorder interface {
	FixAccepted(path string)
	FixRejected(path string)
	Delivered(count int)
	DeliveryFailed(count int)
}

type Broadcaster struct {
	index    *schedule.Index
	store    locationstore.Store
	registry *connections.Registry

	publisher Publisher
	recorder  Recorder
	now       func() time.Time
}

type Option func(*Broadcaster)

func WithPublisher(publisher Publisher) Option {
	return func(b *Broadcaster) {
		b.publisher = publisher
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(b *Broadcaster) {
		b.recorder = recorder
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Broadcaster) {
		b.now = now
	}
}

func New(index *schedule.Index, store locationstore.Store, registry *connections.Registry, options ...Option) *Broadcaster {
	broadcaster := &Broadcaster{
		index:    index,
		store:    store,
		registry: registry,
		now:      time.Now,
	}

	for _, option := range options {
		option(broadcaster)
	}

	return broadcaster
}

// StreamResult is the outcome of a streamed update
type StreamResult struct {
	Fix       LocationFix
	Delivered int
	Failed    int
}

func (b *Broadcaster) validate(path string, message Message) error {
	if err := validation.Struct(message); err != nil {
		if b.recorder != nil {
			b.recorder.FixRejected(path)
		}
		return err
	}

	return nil
}

// accept validates the message and stores it as the vehicle's latest fix
func (b *Broadcaster) accept(ctx context.Context, path string, message Message) (LocationFix, error) {
	if err := b.validate(path, message); err != nil {
		return LocationFix{}, err
	}

	fix := LocationFix{
		VehicleNumber: message.VehicleNumber,
		Latitude:      *message.Latitude,
		Longitude:     *message.Longitude,
		Timestamp:     util.FormatTimestamp(b.now().In(b.index.Location())),
	}

	if err := b.store.SetFields(ctx, locationstore.LocationKey(fix.VehicleNumber), fix.locationFields()); err != nil {
		return LocationFix{}, err
	}

	if b.recorder != nil {
		b.recorder.FixAccepted(path)
	}

	return fix, nil
}

// Submit handles a request/response location update: the fix is stored under the vehicle
// and broadcast to every open connection
func (b *Broadcaster) Submit(ctx context.Context, message Message) (LocationFix, error) {
	fix, err := b.accept(ctx, PathRequest, message)
	if err != nil {
		return LocationFix{}, err
	}

	b.publish(ctx, fix)
	b.Broadcast(fix)

	return fix, nil
}

// SubmitStream handles a streamed location update. On top of Submit's behaviour the fix is
// stored under the vehicle's current trip; a vehicle without a trip gets ErrNoSchedule and
// the update is not broadcast.
func (b *Broadcaster) SubmitStream(ctx context.Context, message Message) (StreamResult, error) {
	fix, err := b.accept(ctx, PathStream, message)
	if err != nil {
		return StreamResult{}, err
	}

	trip, found := b.index.Resolve(fix.VehicleNumber, b.now())
	if !found {
		log.Debug().Str("vehicle", fix.VehicleNumber).Msg("No schedule found for streamed update")
		return StreamResult{Fix: fix}, fmt.Errorf("%w for vehicle: %s", ErrNoSchedule, fix.VehicleNumber)
	}

	fix.TripID = trip.TripID
	if message.Timestamp != "" {
		fix.Timestamp = message.Timestamp
	}

	if err := b.store.SetFields(ctx, locationstore.TripLocationKey(trip.TripID), fix.tripLocationFields()); err != nil {
		return StreamResult{Fix: fix}, err
	}

	b.publish(ctx, fix)
	delivered, failed := b.Broadcast(fix)

	return StreamResult{Fix: fix, Delivered: delivered, Failed: failed}, nil
}

func (b *Broadcaster) publish(ctx context.Context, fix LocationFix) {
	if b.publisher == nil {
		return
	}

	if err := b.publisher.PublishFix(ctx, fix); err != nil {
		log.Error().Err(err).Str("vehicle", fix.VehicleNumber).Msg("Failed to publish location event")
	}
}

// Broadcast delivers the fix to every registered observer. Each delivery is independent;
// failures are logged and counted but never returned.
func (b *Broadcaster) Broadcast(fix LocationFix) (int, int) {
	payload, err := json.Marshal(fix)
	if err != nil {
		log.Error().Err(err).Str("vehicle", fix.VehicleNumber).Msg("Failed to encode location update")
		return 0, 0
	}

	delivered := 0
	failed := 0

	for _, entry := range b.registry.ListActive() {
		var sendErr error
		recovered := panics.Try(func() {
			sendErr = entry.Observer.Send(payload)
		})

		if recovered != nil {
			sendErr = recovered.AsError()
		}

		if sendErr != nil {
			failed++
			log.Debug().Err(sendErr).Str("token", entry.Token).Msg("Failed to deliver location update")
			continue
		}

		delivered++
	}

	if b.recorder != nil {
		b.recorder.Delivered(delivered)
		b.recorder.DeliveryFailed(failed)
	}

	return delivered, failed
}

// Query returns the last stored fix fields for a vehicle
func (b *Broadcaster) Query(ctx context.Context, vehicleNumber string) (map[string]string, bool, error) {
	if vehicleNumber == "" {
		return nil, false, nil
	}

	fields, err := b.store.GetAllFields(ctx, locationstore.LocationKey(vehicleNumber))
	if err != nil {
		return nil, false, err
	}

	if len(fields) == 0 {
		return nil, false, nil
	}

	return fields, true, nil
}
