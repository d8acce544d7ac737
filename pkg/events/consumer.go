package events

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

// LogConsumer writes every consumed location event to the log
type LogConsumer struct {
	queueName string
}

func NewLogConsumer(queueName string) *LogConsumer {
	return &LogConsumer{queueName: queueName}
}

func (consumer *LogConsumer) Consume(batch rmq.Deliveries) {
	for _, payload := range batch.Payloads() {
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Error().Err(err).Str("queue", consumer.queueName).Msg("Failed to decode location event")
			continue
		}

		log.Info().
			Str("queue", consumer.queueName).
			Str("type", string(event.Type)).
			Str("vehicle", event.Body.VehicleNumber).
			Str("trip", event.Body.TripID).
			Float64("latitude", event.Body.Latitude).
			Float64("longitude", event.Body.Longitude).
			Str("timestamp", event.Body.Timestamp).
			Msg("Location event")
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack location event")
		}
	}
}
