package schedule

import (
	"time"
)

// TripSchedule is one planned trip from the schedule feed
type TripSchedule struct {
	TripID        string
	VehicleNumber string
	StartTime     time.Time
	EndTime       time.Time
	Origin        string
	Destination   string
	Route         string
}

// ResolveWindow is how far ahead of now a trip may start and still be considered current
const ResolveWindow = 24 * time.Hour
