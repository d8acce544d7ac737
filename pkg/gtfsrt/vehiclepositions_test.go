package gtfsrt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource struct {
	fixes map[string]map[string]string
	err   error
}

func (s mapSource) Query(_ context.Context, vehicleNumber string) (map[string]string, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	fields, found := s.fixes[vehicleNumber]
	return fields, found, nil
}

func newTestIndex(t *testing.T) *schedule.Index {
	index := schedule.NewIndex(time.UTC)
	_, err := index.Load(strings.NewReader("tripId,vehicleNumber,startTime,endTime,origin,destination,route\n" +
		"T100,KA01AB1234,2024-01-01T09:45:00,2024-01-01T11:15:00,Majestic,Electronic City,500D\n" +
		"T200,KA02CD5678,2024-01-01T09:00:00,2024-01-01T10:00:00,Hebbal,Silk Board,KBS-1\n" +
		"T300,KA03EF9012,2024-01-01T09:00:00,2024-01-01T10:00:00,Hebbal,Silk Board,KBS-1\n"))
	require.NoError(t, err)
	return index
}

func TestBuildVehiclePositions(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	source := mapSource{fixes: map[string]map[string]string{
		"KA01AB1234": {"vehicleNumber": "KA01AB1234", "latitude": "12.9716", "longitude": "77.5946", "timestamp": "2024-01-01T09:29:00.000"},
		"KA02CD5678": {"vehicleNumber": "KA02CD5678", "latitude": "13.0358", "longitude": "77.5970", "timestamp": "garbage"},
		"KA03EF9012": {"vehicleNumber": "KA03EF9012", "latitude": "north", "longitude": "77.5970"},
	}}

	feed, err := BuildVehiclePositions(context.Background(), newTestIndex(t), source, now)
	require.NoError(t, err)

	assert.Equal(t, "2.0", feed.GetHeader().GetGtfsRealtimeVersion())
	assert.Equal(t, uint64(now.Unix()), feed.GetHeader().GetTimestamp())
	require.Len(t, feed.GetEntity(), 2)

	first := feed.GetEntity()[0].GetVehicle()
	assert.Equal(t, "KA01AB1234", first.GetVehicle().GetId())
	assert.Equal(t, "T100", first.GetTrip().GetTripId())
	assert.Equal(t, "500D", first.GetTrip().GetRouteId())
	assert.InDelta(t, 12.9716, first.GetPosition().GetLatitude(), 0.0001)
	assert.Equal(t, uint64(time.Date(2024, 1, 1, 9, 29, 0, 0, time.UTC).Unix()), first.GetTimestamp())

	second := feed.GetEntity()[1].GetVehicle()
	assert.Equal(t, "KA02CD5678", second.GetVehicle().GetId())
	assert.Nil(t, second.Timestamp)
}

func TestBuildVehiclePositionsStoreFailure(t *testing.T) {
	_, err := BuildVehiclePositions(context.Background(), newTestIndex(t), mapSource{err: errors.New("persistence unavailable")}, time.Now())
	assert.Error(t, err)
}
