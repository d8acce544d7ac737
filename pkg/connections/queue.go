package connections

import (
	"errors"
	"sync"
)

var (
	ErrObserverClosed  = errors.New("observer closed")
	ErrObserverBlocked = errors.New("observer send buffer full")
)

// FrameWriter writes one message to the underlying transport
type FrameWriter interface {
	WriteFrame(message []byte) error
}

// QueuedObserver buffers outbound messages for one connection so that a slow client never
// holds up the sender. Messages that do not fit in the buffer are dropped for this observer.
type QueuedObserver struct {
	writer FrameWriter
	queue  chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewQueuedObserver(writer FrameWriter, size int) *QueuedObserver {
	if size <= 0 {
		size = 1
	}

	return &QueuedObserver{
		writer: writer,
		queue:  make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

func (o *QueuedObserver) Send(message []byte) error {
	select {
	case <-o.done:
		return ErrObserverClosed
	default:
	}

	select {
	case o.queue <- message:
		return nil
	case <-o.done:
		return ErrObserverClosed
	default:
		return ErrObserverBlocked
	}
}

// Run writes queued messages until the observer is closed or a write fails.
// A failed write closes the observer.
func (o *QueuedObserver) Run() error {
	for {
		select {
		case <-o.done:
			return nil
		case message := <-o.queue:
			if err := o.writer.WriteFrame(message); err != nil {
				o.Close()
				return err
			}
		}
	}
}

func (o *QueuedObserver) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

// Done is closed once the observer stops accepting messages
func (o *QueuedObserver) Done() <-chan struct{} {
	return o.done
}
