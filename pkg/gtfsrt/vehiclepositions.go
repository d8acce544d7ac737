package gtfsrt

import (
	"context"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/margdarshak/tracker/pkg/schedule"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
)

const gtfsRealtimeVersion = "2.0"

// LocationSource looks up the latest stored fix for a vehicle
type LocationSource interface {
	Query(ctx context.Context, vehicleNumber string) (map[string]string, bool, error)
}

// BuildVehiclePositions creates a full dataset GTFS-Realtime feed with the last fix of every
// scheduled vehicle. Vehicles without a fix are left out.
func BuildVehiclePositions(ctx context.Context, index *schedule.Index, source LocationSource, now time.Time) (*gtfs.FeedMessage, error) {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
	}

	for _, vehicleNumber := range index.Vehicles() {
		fields, found, err := source.Query(ctx, vehicleNumber)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		fix, err := liveupdates.ParseLocationFields(fields)
		if err != nil {
			log.Warn().Err(err).Str("vehicle", vehicleNumber).Msg("Stored location is not readable")
			continue
		}

		vehiclePosition := &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(vehicleNumber),
				Label: proto.String(vehicleNumber),
			},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(float32(fix.Latitude)),
				Longitude: proto.Float32(float32(fix.Longitude)),
			},
		}

		if trip, found := index.Resolve(vehicleNumber, now); found {
			vehiclePosition.Trip = &gtfs.TripDescriptor{
				TripId:  proto.String(trip.TripID),
				RouteId: proto.String(trip.Route),
			}
		}

		if timestamp, err := util.ParseLocalDateTime(fix.Timestamp, index.Location()); err == nil {
			vehiclePosition.Timestamp = proto.Uint64(uint64(timestamp.Unix()))
		}

		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:      proto.String(vehicleNumber),
			Vehicle: vehiclePosition,
		})
	}

	return feed, nil
}
