package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/ocppnet/ocppnet/ocpp"
)

// execute runs the action handler for a request or send and builds the reply.
// Replies are only produced for requests.
func (n *Node) execute(ctx context.Context, req ocpp.Envelope) (reply ocpp.Envelope, ok bool) {
	h, found := n.handlers.Lookup(req.Action)

	if !found {
		n.log.Debug("no handler for action", req.LogValues()...)

		if req.Kind != ocpp.KindRequest {
			return ocpp.Envelope{}, false
		}

		return ocpp.Reject(req, ocpp.CodeNotImplemented, fmt.Sprintf("Unknown action: %s", req.Action), nil), true
	}

	payload, err := n.invoke(ctx, h, req)

	if req.Kind != ocpp.KindRequest {
		if err != nil {
			n.log.Warn("send handler failed", append(req.LogValues(), "error", err)...)
		}

		return ocpp.Envelope{}, false
	}

	if err != nil {
		var cerr *ocpp.CallError

		if errors.As(err, &cerr) {
			return ocpp.RequestErrorFor(req, cerr), true
		}

		var perr *handlerPanic

		if errors.As(err, &perr) {
			n.log.Error("handler panicked", append(req.LogValues(), "error", perr.value)...)
			return ocpp.InternalErrorFor(req, perr, perr.stack), true
		}

		n.log.Warn("handler failed", append(req.LogValues(), "error", err)...)

		return ocpp.InternalErrorFor(req, err, nil), true
	}

	if req.IsBinary() {
		return req.BinaryReply(payload), true
	}

	return req.Reply(payload), true
}

type handlerPanic struct {
	value interface{}
	stack []byte
}

func (p *handlerPanic) Error() string {
	return fmt.Sprintf("%v", p.value)
}

func (n *Node) invoke(ctx context.Context, h Handler, req ocpp.Envelope) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &handlerPanic{value: r, stack: debug.Stack()}
		}
	}()

	return h.ServeOCPP(ctx, req)
}
