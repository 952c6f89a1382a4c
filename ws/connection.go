package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
)

var ErrLinkClosed = errors.New("link is closed")

// Link is a WebSocket connection to a neighbour node
type Link struct {
	id   addressing.NodeID
	conn *websocket.Conn

	// gorilla connections support a single concurrent writer
	mu     sync.Mutex
	closed bool

	pingInterval time.Duration
	done         chan struct{}

	log *slog.Logger
}

var _ router.Connection = (*Link)(nil)

func NewLink(id addressing.NodeID, conn *websocket.Conn, conf *Config, l *slog.Logger) *Link {
	return &Link{
		id:           id,
		conn:         conn,
		pingInterval: time.Duration(conf.PingInterval) * time.Second,
		done:         make(chan struct{}),
		log:          l.With("neighbour", string(id)),
	}
}

func (l *Link) ID() addressing.NodeID {
	return l.id
}

// Subprotocol returns the negotiated OCPP version
func (l *Link) Subprotocol() string {
	return l.conn.Subprotocol()
}

// Send writes a frame; the context deadline becomes the write deadline
func (l *Link) Send(ctx context.Context, frame ocpp.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLinkClosed
	}

	deadline, _ := ctx.Deadline()

	if err := l.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return l.conn.WriteMessage(messageType(frame.Type), frame.Payload)
}

// Serve registers the link with the receiver and pumps incoming frames into it until
// the connection is closed. Returns nil for regular closures.
func (l *Link) Serve(ctx context.Context, recv Receiver) error {
	recv.Connect(l)
	defer recv.Disconnect(l)

	if l.pingInterval > 0 {
		go l.keepalive()
	}

	defer l.Close(CloseNormalClosure, "")

	for {
		mt, payload, err := l.conn.ReadMessage()

		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()

			if closed || IsCloseError(err) {
				return nil
			}

			return err
		}

		frame, ok := frameOf(mt, payload)

		if !ok {
			continue
		}

		recv.HandleFrame(ctx, l, frame)
	}
}

func (l *Link) keepalive() {
	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(l.pingInterval))
			l.mu.Unlock()

			if err != nil {
				l.log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// Close sends close frame with a given code and a reason
func (l *Link) Close(code int, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.done)

	CloseWithReason(l.conn, code, reason)
}
