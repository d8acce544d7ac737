package tripsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/margdarshak/tracker/pkg/locationstore"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/margdarshak/tracker/pkg/validation"
	"github.com/rs/zerolog/log"
)

// ErrNoSchedule is returned when the vehicle has no trips in the schedule.
// It is a rejection of the request, not a system fault.
var ErrNoSchedule = errors.New("no schedule found")

// TripSession is the persisted form of a started trip
type TripSession struct {
	TripID        string `json:"tripId"`
	VehicleNumber string `json:"vehicleNumber"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Route         string `json:"route"`
}

// FromTrip is the session form of a scheduled trip
func FromTrip(trip schedule.TripSchedule) TripSession {
	return TripSession{
		TripID:        trip.TripID,
		VehicleNumber: trip.VehicleNumber,
		StartTime:     util.FormatLocalDateTime(trip.StartTime),
		EndTime:       util.FormatLocalDateTime(trip.EndTime),
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		Route:         trip.Route,
	}
}

func sessionFromFields(fields map[string]string) TripSession {
	return TripSession{
		TripID:        fields["tripId"],
		VehicleNumber: fields["vehicleNumber"],
		StartTime:     fields["startTime"],
		EndTime:       fields["endTime"],
		Origin:        fields["origin"],
		Destination:   fields["destination"],
		Route:         fields["route"],
	}
}

func (s TripSession) fields() map[string]string {
	return map[string]string{
		"tripId":        s.TripID,
		"vehicleNumber": s.VehicleNumber,
		"startTime":     s.StartTime,
		"endTime":       s.EndTime,
		"origin":        s.Origin,
		"destination":   s.Destination,
		"route":         s.Route,
	}
}

type StartRequest struct {
	VehicleNumber string `json:"vehicleNumber"`
	StartTime     string `json:"startTime"`
}

type StartResult struct {
	TripID  string
	Session TripSession
}

// Recorder is notified of started trips
type Recorder interface {
	TripStarted()
}

type Manager struct {
	index *schedule.Index
	store locationstore.Store

	now      func() time.Time
	recorder Recorder
}

type Option func(*Manager)

// WithClock overrides the time used to resolve the vehicle's current trip
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

func NewManager(index *schedule.Index, store locationstore.Store, options ...Option) *Manager {
	manager := &Manager{
		index: index,
		store: store,
		now:   time.Now,
	}

	for _, option := range options {
		option(manager)
	}

	return manager
}

// StartTrip binds the vehicle to its current scheduled trip, overwrites the trip's start time
// and persists the session snapshot under the trip id
func (m *Manager) StartTrip(ctx context.Context, request StartRequest) (StartResult, error) {
	if request.VehicleNumber == "" {
		return StartResult{}, validation.Required("vehicleNumber")
	}
	if request.StartTime == "" {
		return StartResult{}, validation.Required("startTime")
	}

	startTime, err := util.ParseLocalDateTime(request.StartTime, m.index.Location())
	if err != nil {
		return StartResult{}, validation.Invalid("startTime", fmt.Sprintf("Invalid startTime format: %s", request.StartTime))
	}

	trip, found := m.index.Resolve(request.VehicleNumber, m.now())
	if !found {
		return StartResult{}, fmt.Errorf("%w for vehicle: %s", ErrNoSchedule, request.VehicleNumber)
	}

	// The index only takes the new start time once the session is stored
	started := trip
	started.StartTime = startTime

	session := FromTrip(started)
	if err := m.store.SetFields(ctx, locationstore.TripScheduleKey(trip.TripID), session.fields()); err != nil {
		return StartResult{}, err
	}

	if _, found := m.index.UpdateStartTime(trip.TripID, startTime); !found {
		log.Warn().Str("trip", trip.TripID).Msg("Trip left the schedule while starting, start time kept only in the stored session")
	}

	if m.recorder != nil {
		m.recorder.TripStarted()
	}

	log.Info().Str("trip", trip.TripID).Str("vehicle", trip.VehicleNumber).Str("start", session.StartTime).Msg("Trip started")

	return StartResult{TripID: trip.TripID, Session: session}, nil
}

// Session returns the persisted session for a started trip
func (m *Manager) Session(ctx context.Context, tripID string) (TripSession, bool, error) {
	fields, err := m.store.GetAllFields(ctx, locationstore.TripScheduleKey(tripID))
	if err != nil {
		return TripSession{}, false, err
	}
	if len(fields) == 0 {
		return TripSession{}, false, nil
	}

	return sessionFromFields(fields), true, nil
}
