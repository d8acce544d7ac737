package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/margdarshak/tracker/pkg/liveupdates"
)

// QueuePublisher pushes accepted fixes onto a redis queue for downstream consumers
type QueuePublisher struct {
	queue rmq.Queue
	now   func() time.Time
}

func NewQueuePublisher(connection rmq.Connection, queueName string) (*QueuePublisher, error) {
	queue, err := connection.OpenQueue(queueName)
	if err != nil {
		return nil, err
	}

	return &QueuePublisher{queue: queue, now: time.Now}, nil
}

func (p *QueuePublisher) PublishFix(_ context.Context, fix liveupdates.LocationFix) error {
	eventBytes, err := json.Marshal(NewLocationEvent(fix, p.now()))
	if err != nil {
		return err
	}

	return p.queue.PublishBytes(eventBytes)
}
