package util

import (
	"strings"
	"time"
)

// LocalDateTimeLayout is the ISO-8601 local date-time used by schedule feeds and trip requests.
// Fractional seconds are optional when parsing.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

const localDateTimeParseLayout = "2006-01-02T15:04:05.999999999"

const localDateTimeMinutesLayout = "2006-01-02T15:04"

// ParseLocalDateTime parses an ISO-8601 local date-time (no offset) in the given location.
// Seconds may be omitted.
func ParseLocalDateTime(value string, location *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if location == nil {
		location = time.Local
	}

	parsed, err := time.ParseInLocation(localDateTimeParseLayout, value, location)
	if err == nil {
		return parsed, nil
	}

	if parsed, minutesErr := time.ParseInLocation(localDateTimeMinutesLayout, value, location); minutesErr == nil {
		return parsed, nil
	}

	return time.Time{}, err
}

func FormatLocalDateTime(t time.Time) string {
	return t.Format(LocalDateTimeLayout)
}

const timestampLayout = "2006-01-02T15:04:05.000"

// FormatTimestamp renders a fixed width local timestamp with milliseconds, so stored
// timestamps compare correctly as strings
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
