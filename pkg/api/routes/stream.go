package routes

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/margdarshak/tracker/pkg/connections"
	"github.com/margdarshak/tracker/pkg/liveupdates"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const (
	frameWriteTimeout = 10 * time.Second
	frameTimeout      = 5 * time.Second
)

// Silent connections are dropped after pongWait; pings go out every pingPeriod
var (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ConnectionRecorder is told when observer connections open and close
type ConnectionRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
}

type LocationStream struct {
	Broadcaster *liveupdates.Broadcaster
	Registry    *connections.Registry
	Recorder    ConnectionRecorder

	ObserverBuffer int
}

func LocationStreamRouter(router fiber.Router, stream LocationStream) {
	router.Use("/locations", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/locations", websocket.New(stream.serve))
}

type frameWriter struct {
	conn *websocket.Conn
}

func (w *frameWriter) WriteFrame(message []byte) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

// readDeadline keeps the connection's read deadline. Once hung up it is never extended again.
type readDeadline struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	hungUp bool
}

func (d *readDeadline) extend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hungUp {
		_ = d.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// hangUp sends a close frame and expires the read deadline so the read loop returns.
// The hijacked connection itself is only closed by the server once the handler exits.
func (d *readDeadline) hangUp() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hungUp = true
	_ = d.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = d.conn.SetReadDeadline(time.Now())
}

func (s LocationStream) serve(conn *websocket.Conn) {
	token := conn.Query("token")
	if token == "" {
		token = uuid.NewString()
	}

	connectionLogger := log.With().Str("token", token).Str("ip", conn.IP()).Logger()

	observer := connections.NewQueuedObserver(&frameWriter{conn: conn}, s.ObserverBuffer)

	if previous, replaced := s.Registry.Register(token, observer); replaced {
		connectionLogger.Info().Msg("Replacing existing connection for token")
		if queued, ok := previous.(*connections.QueuedObserver); ok {
			queued.Close()
		}
	}
	if s.Recorder != nil {
		s.Recorder.ConnectionOpened()
	}
	connectionLogger.Debug().Msg("Connection opened")

	deadline := &readDeadline{conn: conn}
	deadline.extend()
	conn.SetPongHandler(func(string) error {
		deadline.extend()
		return nil
	})

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := observer.Run(); err != nil {
			connectionLogger.Debug().Err(err).Msg("Connection write failed")
		}
		s.Registry.Release(token, observer)
		deadline.hangUp()
	})
	wg.Go(func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-observer.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(frameWriteTimeout)); err != nil {
					connectionLogger.Debug().Err(err).Msg("Ping failed")
					observer.Close()
					return
				}
			}
		}
	})

	defer func() {
		observer.Close()
		s.Registry.Release(token, observer)
		wg.Wait()

		if s.Recorder != nil {
			s.Recorder.ConnectionClosed()
		}
		connectionLogger.Debug().Msg("Connection closed")
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		select {
		case <-observer.Done():
			return
		default:
		}
		deadline.extend()

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		if reply := s.handleFrame(payload); reply != nil {
			if err := observer.Send(reply); err != nil {
				connectionLogger.Debug().Err(err).Msg("Failed to queue reply")
			}
		}
	}
}

// handleFrame processes one inbound update and returns the reply for the producer, if any
func (s LocationStream) handleFrame(payload []byte) []byte {
	var message liveupdates.Message
	if err := json.Unmarshal(payload, &message); err != nil {
		return errorFrame("Invalid message format")
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	if _, err := s.Broadcaster.SubmitStream(ctx, message); err != nil {
		status, reason := describeError(err, message.VehicleNumber)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("vehicle", message.VehicleNumber).Msg("Failed to process streamed update")
		}
		return errorFrame(reason)
	}

	return nil
}

func errorFrame(reason string) []byte {
	frame, _ := json.Marshal(fiber.Map{
		"error": reason,
	})
	return frame
}
