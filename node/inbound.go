package node

import (
	"context"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/logger"
	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
)

// HandleFrame processes a frame received from a neighbour connection.
// It never blocks on action handlers: they run on the handler pool.
func (n *Node) HandleFrame(ctx context.Context, from Connection, frame ocpp.Frame) {
	n.metrics.FrameReceived(frame.Type.String())

	env, err := n.encoder.Decode(frame, from.ID())

	if err != nil {
		n.rejectMalformed(ctx, from, frame, err)
		return
	}

	n.log.Debug("frame received", append(env.LogValues(), "neighbour", string(from.ID()))...)

	if n.conf.LearnRoutes {
		n.table.Learn(env.NetworkPath.Source(), from.ID())
	}

	decision := router.Decide(n.id, env, n.table)

	switch decision.Action {
	case router.ActionDeliver:
		n.deliver(ctx, from, env)
	case router.ActionForward:
		n.forward(ctx, from, decision.Envelope, decision.NextHop, true)
	case router.ActionBroadcast:
		n.deliver(ctx, from, env)

		for _, target := range decision.Targets {
			n.forward(ctx, from, decision.Envelope, target, false)
		}
	case router.ActionUnreachable:
		n.drop(ctx, from, env, ocpp.CodeUnknownClient, decision.Reason, "unreachable")
	case router.ActionLoop:
		n.drop(ctx, from, env, ocpp.CodeNetworkError, decision.Reason, "loop")
	}
}

// rejectMalformed answers unparseable requests with a FormationViolation.
// Malformed replies and sends are only logged.
func (n *Node) rejectMalformed(ctx context.Context, from Connection, frame ocpp.Frame, err error) {
	n.metrics.ParseFailed()

	reason := ocpp.ErrorReason(err)

	n.log.Warn("failed to parse frame", "neighbour", string(from.ID()), "reason", reason, "raw", logger.CompactValue(frame.Payload))

	kind, id := ocpp.Peek(frame)

	if kind != ocpp.KindRequest {
		return
	}

	violation := ocpp.FormationViolation(
		id, frame.Payload, reason,
		ocpp.WithMode(n.mode),
		ocpp.WithDestination(addressing.To(from.ID())),
	)

	n.reply(ctx, from, violation)
}

func (n *Node) drop(ctx context.Context, from Connection, env ocpp.Envelope, code ocpp.ResultCode, reason string, label string) {
	n.metrics.FrameDropped(label)
	n.log.Warn("message dropped", append(env.LogValues(), "reason", reason)...)

	if env.Kind == ocpp.KindRequest {
		n.reply(ctx, from, ocpp.Reject(env, code, reason, nil))
	}
}

// deliver handles a message addressed to this node
func (n *Node) deliver(ctx context.Context, from Connection, env ocpp.Envelope) {
	if err := n.pipeline.VerifyEnvelope(env); err != nil {
		n.metrics.SignatureFailed(metrics.DirectionInbound)
		n.log.Warn("signature verification failed", append(env.LogValues(), "error", ocpp.ErrorReason(err))...)

		switch env.Kind {
		case ocpp.KindRequest:
			n.reply(ctx, from, ocpp.Reject(env, ocpp.CodeSecurityError, "Signature verification failed", nil))
		case ocpp.KindSend:
			// there is nobody to reply to, so observers are the only ones to learn about it
			n.hooks.RequestReceived.Notify(ctx, env.WithTransportError(ocpp.ErrorReason(err)))
		case ocpp.KindResponse, ocpp.KindRequestError:
			n.hooks.ResponseErrorReceived.Notify(ctx, env)
			n.engine.Fail(env.RequestID, ocpp.CodeSecurityError, ocpp.ErrorReason(err))
		}

		return
	}

	switch env.Kind {
	case ocpp.KindRequest, ocpp.KindSend:
		n.metrics.RequestReceived()
		n.hooks.RequestReceived.Notify(ctx, env)
		n.dispatch(ctx, from, env)
	case ocpp.KindResponse:
		n.hooks.ResponseReceived.Notify(ctx, env)
		n.resolve(ctx, env)
	case ocpp.KindRequestError:
		n.hooks.RequestErrorReceived.Notify(ctx, env)
		n.resolve(ctx, env)
	}
}

func (n *Node) resolve(ctx context.Context, env ocpp.Envelope) {
	if n.engine.Resolve(env) {
		return
	}

	n.metrics.FrameDropped("unexpected_reply")
	n.log.Debug("reply matches no pending request", env.LogValues()...)
	n.hooks.ResponseErrorReceived.Notify(ctx, env)
}

// dispatch runs the action handler on the pool and sends the reply back to the neighbour
func (n *Node) dispatch(ctx context.Context, from Connection, req ocpp.Envelope) {
	err := n.pool.ScheduleContext(ctx, func() {
		if reply, ok := n.execute(ctx, req); ok {
			n.reply(ctx, from, reply)
		}
	})

	if err != nil {
		n.log.Warn("failed to schedule handler", append(req.LogValues(), "error", err)...)

		if req.Kind == ocpp.KindRequest {
			n.reply(ctx, from, ocpp.Reject(req, ocpp.CodeInternalError, "Request could not be processed", nil))
		}
	}
}

// reply signs a reply and sends it through the neighbour the request came from
func (n *Node) reply(ctx context.Context, to Connection, env ocpp.Envelope) {
	signed, err := n.pipeline.SignEnvelope(env)

	if err != nil {
		n.metrics.SignatureFailed(metrics.DirectionOutbound)
		n.log.Error("failed to sign reply", append(env.LogValues(), "error", err)...)

		signed = ocpp.NewRequestError(
			env.RequestID, ocpp.CodeSecurityError, "Failed to sign reply", nil,
			ocpp.WithEventTrackingID(env.EventTrackingID),
			ocpp.WithMode(env.NetworkingMode),
			ocpp.WithDestination(env.Destination),
		)
	}

	if err := n.write(ctx, to, signed); err != nil {
		n.log.Warn("failed to send reply", append(signed.LogValues(), "error", err)...)
	}
}

// forward relays a message to the next hop. Relays neither verify nor sign.
func (n *Node) forward(ctx context.Context, from Connection, env ocpp.Envelope, next Connection, replyOnFailure bool) {
	n.hooks.Forwarded.Notify(ctx, env)

	if err := n.write(ctx, next, env); err != nil {
		failed := env.WithTransportError(ocpp.ErrorReason(err))

		n.metrics.FrameDropped("send_failed")
		n.log.Warn("failed to forward message", append(failed.LogValues(), "next", string(next.ID()))...)

		if replyOnFailure && failed.Kind == ocpp.KindRequest {
			n.reply(ctx, from, ocpp.Reject(failed, ocpp.CodeNetworkError, failed.ErrorMessage, nil))
		}

		return
	}

	n.metrics.FrameForwarded()
}
