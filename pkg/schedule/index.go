package schedule

import (
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// tripSlot holds the current version of a trip. Updates store a modified copy so
// readers always see a complete record.
type tripSlot struct {
	trip atomic.Pointer[TripSchedule]
}

func newTripSlot(trip TripSchedule) *tripSlot {
	slot := &tripSlot{}
	slot.trip.Store(&trip)
	return slot
}

func (s *tripSlot) load() TripSchedule {
	return *s.trip.Load()
}

type snapshot struct {
	byVehicle map[string][]*tripSlot
	byTrip    map[string]*tripSlot
	vehicles  []string
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byVehicle: map[string][]*tripSlot{},
		byTrip:    map[string]*tripSlot{},
	}
}

// Index maps vehicle numbers to their scheduled trips. It is safe for concurrent use;
// a load replaces the whole mapping at once.
type Index struct {
	current  atomic.Pointer[snapshot]
	location *time.Location
}

// NewIndex creates an empty index. Feed timestamps are read in location.
func NewIndex(location *time.Location) *Index {
	if location == nil {
		location = time.Local
	}

	index := &Index{location: location}
	index.current.Store(emptySnapshot())

	return index
}

func (i *Index) Location() *time.Location {
	return i.location
}

func (i *Index) snapshot() *snapshot {
	return i.current.Load()
}

func (i *Index) replace(trips []TripSchedule) {
	next := emptySnapshot()

	for _, trip := range trips {
		slot := newTripSlot(trip)

		if _, exists := next.byVehicle[trip.VehicleNumber]; !exists {
			next.vehicles = append(next.vehicles, trip.VehicleNumber)
		}
		next.byVehicle[trip.VehicleNumber] = append(next.byVehicle[trip.VehicleNumber], slot)
		next.byTrip[trip.TripID] = slot
	}

	i.current.Store(next)
}

// Resolve returns the trip a vehicle is currently on: the earliest trip starting no later
// than now+24h, or the first trip loaded for the vehicle when none is in that window.
// The bool is false when the vehicle has no trips at all.
func (i *Index) Resolve(vehicleNumber string, now time.Time) (TripSchedule, bool) {
	slots := i.snapshot().byVehicle[vehicleNumber]
	if len(slots) == 0 {
		return TripSchedule{}, false
	}

	windowEnd := now.Add(ResolveWindow)

	var best *TripSchedule
	for _, slot := range slots {
		trip := slot.load()
		if trip.StartTime.After(windowEnd) {
			continue
		}

		if best == nil || trip.StartTime.Before(best.StartTime) {
			best = &trip
		}
	}

	if best == nil {
		return slots[0].load(), true
	}

	return *best, true
}

// Trips returns every trip for a vehicle in load order
func (i *Index) Trips(vehicleNumber string) []TripSchedule {
	slots := i.snapshot().byVehicle[vehicleNumber]

	trips := make([]TripSchedule, 0, len(slots))
	for _, slot := range slots {
		trips = append(trips, slot.load())
	}

	return trips
}

func (i *Index) Trip(tripID string) (TripSchedule, bool) {
	slot, exists := i.snapshot().byTrip[tripID]
	if !exists {
		return TripSchedule{}, false
	}

	return slot.load(), true
}

// UpdateStartTime replaces the trip's start time. Concurrent updates of the same trip are
// last-write-wins.
func (i *Index) UpdateStartTime(tripID string, start time.Time) (TripSchedule, bool) {
	slot, exists := i.snapshot().byTrip[tripID]
	if !exists {
		return TripSchedule{}, false
	}

	updated := slot.load()
	updated.StartTime = start
	slot.trip.Store(&updated)

	return updated, true
}

// Vehicles lists every vehicle with at least one trip, in load order
func (i *Index) Vehicles() []string {
	return slices.Clone(i.snapshot().vehicles)
}

// Len is the number of trips loaded
func (i *Index) Len() int {
	return len(i.snapshot().byTrip)
}
