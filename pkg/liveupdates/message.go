package liveupdates

import (
	"strconv"
)

// Message is an inbound location update from a producer
type Message struct {
	VehicleNumber string   `json:"vehicleNumber" validate:"required"`
	Latitude      *float64 `json:"latitude" validate:"required"`
	Longitude     *float64 `json:"longitude" validate:"required"`
	Timestamp     string   `json:"timestamp,omitempty"`
}

// LocationFix is an accepted position report
type LocationFix struct {
	VehicleNumber string  `json:"vehicleNumber"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Timestamp     string  `json:"timestamp"`
	TripID        string  `json:"tripId,omitempty"`
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// locationFields is the `location:<vehicle>` hash
func (f LocationFix) locationFields() map[string]string {
	return map[string]string{
		"vehicleNumber": f.VehicleNumber,
		"latitude":      formatCoordinate(f.Latitude),
		"longitude":     formatCoordinate(f.Longitude),
		"timestamp":     f.Timestamp,
	}
}

// tripLocationFields is the `trip_location:<trip>` hash
func (f LocationFix) tripLocationFields() map[string]string {
	return map[string]string{
		"latitude":  formatCoordinate(f.Latitude),
		"longitude": formatCoordinate(f.Longitude),
		"timestamp": f.Timestamp,
	}
}

// ParseLocationFields converts a stored `location:<vehicle>` hash back into a fix
func ParseLocationFields(fields map[string]string) (LocationFix, error) {
	latitude, err := strconv.ParseFloat(fields["latitude"], 64)
	if err != nil {
		return LocationFix{}, err
	}

	longitude, err := strconv.ParseFloat(fields["longitude"], 64)
	if err != nil {
		return LocationFix{}, err
	}

	return LocationFix{
		VehicleNumber: fields["vehicleNumber"],
		Latitude:      latitude,
		Longitude:     longitude,
		Timestamp:     fields["timestamp"],
	}, nil
}
