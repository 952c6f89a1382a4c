// Package ws carries OCPP frames between networking nodes over WebSocket connections.
package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
)

const (
	// CloseNormalClosure indicates normal closure
	CloseNormalClosure = websocket.CloseNormalClosure

	// CloseInternalServerErr indicates closure because of internal error
	CloseInternalServerErr = websocket.CloseInternalServerErr

	// CloseAbnormalClosure indicates abnormal close
	CloseAbnormalClosure = websocket.CloseAbnormalClosure

	// CloseGoingAway indicates closing because of server shuts down or client disconnects
	CloseGoingAway = websocket.CloseGoingAway

	// CloseProtocolError is used when no OCPP subprotocol could be agreed on
	CloseProtocolError = websocket.CloseProtocolError
)

var (
	expectedCloseStatuses = []int{
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	}
)

// Receiver consumes frames read from links (implemented by *node.Node)
type Receiver interface {
	HandleFrame(ctx context.Context, from router.Connection, frame ocpp.Frame)
	Connect(conn router.Connection)
	Disconnect(conn router.Connection)
}

func IsCloseError(err error) bool {
	return websocket.IsCloseError(err, expectedCloseStatuses...)
}

func messageType(t ocpp.FrameType) int {
	if t == ocpp.BinaryFrame {
		return websocket.BinaryMessage
	}

	return websocket.TextMessage
}

func frameOf(mt int, payload []byte) (ocpp.Frame, bool) {
	switch mt {
	case websocket.TextMessage:
		return ocpp.TextFrameOf(payload), true
	case websocket.BinaryMessage:
		return ocpp.BinaryFrameOf(payload), true
	default:
		return ocpp.Frame{}, false
	}
}

// CloseWithReason closes WebSocket connection with the specified close code and reason
func CloseWithReason(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	ws.WriteControl(websocket.CloseMessage, msg, deadline) //nolint:errcheck
	ws.Close()
}
