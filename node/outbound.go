package node

import (
	"context"
	"time"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/correlation"
	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
)

func (n *Node) withMode(env ocpp.Envelope) ocpp.Envelope {
	if env.NetworkingMode == ocpp.ModeUnknown {
		return env.WithNetworkingMode(n.mode)
	}

	return env
}

// Call sends a request and waits for its outcome. Routing, signing and
// transport failures are reported as request error outcomes; an error is
// returned only if the request cannot be registered or ctx is done first.
// The timeout is taken from the request's deadline or the engine's default.
func (n *Node) Call(ctx context.Context, req ocpp.Envelope) (correlation.Outcome, error) {
	if req.Kind != ocpp.KindRequest {
		return correlation.Outcome{}, correlation.ErrNotARequest
	}

	req = n.withMode(req)

	decision := router.Originate(n.id, req, n.table)

	switch decision.Action {
	case router.ActionForward:
	case router.ActionDeliver:
		return n.callLocal(ctx, req), nil
	case router.ActionBroadcast:
		return correlation.Failed(req, ocpp.CodeNotSupported, "requests cannot be broadcast"), nil
	default:
		n.log.Debug("request is unroutable", append(req.LogValues(), "reason", decision.Reason)...)
		return correlation.Failed(req, ocpp.CodeUnknownClient, decision.Reason), nil
	}

	signed, err := n.pipeline.SignEnvelope(decision.Envelope)

	if err != nil {
		n.metrics.SignatureFailed(metrics.DirectionOutbound)
		return correlation.Failed(req, ocpp.CodeSecurityError, ocpp.ErrorReason(err)), nil
	}

	return n.engine.SendAndWait(ctx, signed, 0, func(ctx context.Context, env ocpp.Envelope) error {
		if err := n.write(ctx, decision.NextHop, env); err != nil {
			return err
		}

		n.hooks.RequestSent.Notify(ctx, env)

		return nil
	})
}

// callLocal executes a request addressed to this very node
func (n *Node) callLocal(ctx context.Context, req ocpp.Envelope) correlation.Outcome {
	start := time.Now()

	reply, _ := n.execute(ctx, req)

	kind := correlation.OutcomeResponse

	if reply.Kind == ocpp.KindRequestError {
		kind = correlation.OutcomeRequestError
	}

	return correlation.Outcome{Kind: kind, Request: req, Envelope: reply, Elapsed: time.Since(start)}
}

// Send transmits a message without waiting for a reply (SEND messages, broadcasts).
// Requests must go through Call so that their replies have a pending entry to land on.
func (n *Node) Send(ctx context.Context, env ocpp.Envelope) error {
	if env.Kind == ocpp.KindRequest {
		return ocpp.RoutingError.New("request %s expects a reply, use Call", env.RequestID)
	}

	env = n.withMode(env)

	decision := router.Originate(n.id, env, n.table)

	if decision.Action == router.ActionUnreachable {
		return ocpp.RoutingError.New("%s", decision.Reason)
	}

	if decision.Action == router.ActionDeliver {
		if env.Kind != ocpp.KindSend {
			return ocpp.RoutingError.New("%s cannot be delivered to the local node", env.Kind)
		}

		n.pool.Schedule(func() { n.execute(ctx, env) })

		return nil
	}

	signed, err := n.pipeline.SignEnvelope(decision.Envelope)

	if err != nil {
		n.metrics.SignatureFailed(metrics.DirectionOutbound)
		return err
	}

	if decision.Action == router.ActionForward {
		return n.write(ctx, decision.NextHop, signed)
	}

	var errs []error

	for _, target := range decision.Targets {
		if err := n.write(ctx, target, signed); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errorx.DecorateMany("broadcast failed", errs...)
	}

	return nil
}
