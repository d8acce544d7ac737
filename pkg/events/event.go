package events

import (
	"time"

	"github.com/margdarshak/tracker/pkg/liveupdates"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Body      liveupdates.LocationFix
}

type EventType string

const (
	EventTypeLocationUpdated     EventType = "LocationUpdated"
	EventTypeTripLocationUpdated EventType = "TripLocationUpdated"
)

func NewLocationEvent(fix liveupdates.LocationFix, now time.Time) Event {
	eventType := EventTypeLocationUpdated
	if fix.TripID != "" {
		eventType = EventTypeTripLocationUpdated
	}

	return Event{
		Type:      eventType,
		Timestamp: now,
		Body:      fix,
	}
}
