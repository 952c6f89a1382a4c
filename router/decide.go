// Package router decides what a networking node does with a message:
// deliver it locally, relay it to a neighbour or fan it out.
//
// Relaying is stateless. The only per-message change is recording the local
// node in the network path (and consuming the local hop of a source route).
package router

import (
	"fmt"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
)

type Action int

const (
	ActionDeliver Action = iota + 1
	ActionForward
	ActionBroadcast
	ActionUnreachable
	ActionLoop
)

func (a Action) String() string {
	switch a {
	case ActionDeliver:
		return "deliver"
	case ActionForward:
		return "forward"
	case ActionBroadcast:
		return "broadcast"
	case ActionUnreachable:
		return "unreachable"
	case ActionLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Decision describes where a message goes next
type Decision struct {
	Action Action
	// Envelope is the message to deliver or to send onwards (re-addressed when relayed)
	Envelope ocpp.Envelope
	// NextHop is set for ActionForward
	NextHop Connection
	// Targets are the neighbours to fan a broadcast out to (the message is delivered locally as well)
	Targets []Connection
	// Reason explains unreachable and loop decisions
	Reason string
}

// consumeLocal drops leading hops naming the local node
func consumeLocal(local addressing.NodeID, dest addressing.SourceRouting) addressing.SourceRouting {
	for dest.Len() > 0 && dest.Next() == local {
		dest = dest.Rest()
	}

	return dest
}

// fanOut returns neighbours that have not seen the message yet
func fanOut(table *Table, path addressing.NetworkPath) []Connection {
	var targets []Connection

	for _, conn := range table.Neighbours() {
		if !path.Contains(conn.ID()) {
			targets = append(targets, conn)
		}
	}

	return targets
}

// Decide handles a message received from a neighbour.
// The message's network path already records the neighbour it came from.
func Decide(local addressing.NodeID, env ocpp.Envelope, table *Table) Decision {
	if env.Destination.IsBroadcast() {
		if env.NetworkPath.Contains(local) {
			return Decision{Action: ActionLoop, Envelope: env, Reason: fmt.Sprintf("broadcast already passed %s", local)}
		}

		out := env.AppendHop(local)

		return Decision{Action: ActionBroadcast, Envelope: out, Targets: fanOut(table, out.NetworkPath)}
	}

	dest := consumeLocal(local, env.Destination)

	if dest.IsZero() {
		return Decision{Action: ActionDeliver, Envelope: env}
	}

	if env.NetworkPath.Contains(local) {
		return Decision{Action: ActionLoop, Envelope: env, Reason: fmt.Sprintf("%s is already in the path %s", local, env.NetworkPath)}
	}

	next, ok := table.Lookup(dest.Next())

	if !ok {
		return Decision{Action: ActionUnreachable, Envelope: env, Reason: fmt.Sprintf("no route to %s", dest.Next())}
	}

	if env.NetworkPath.Contains(next.ID()) {
		return Decision{Action: ActionLoop, Envelope: env, Reason: fmt.Sprintf("next hop %s is already in the path %s", next.ID(), env.NetworkPath)}
	}

	return Decision{
		Action:   ActionForward,
		Envelope: env.AppendHop(local).WithDestination(dest),
		NextHop:  next,
	}
}

// Originate handles a message created by the local node.
// The path stays empty: the receiving neighbour records the local node as the source.
// A message without a destination goes to the default route.
func Originate(local addressing.NodeID, env ocpp.Envelope, table *Table) Decision {
	if env.Destination.IsBroadcast() {
		return Decision{Action: ActionBroadcast, Envelope: env, Targets: table.Neighbours()}
	}

	dest := consumeLocal(local, env.Destination)

	if dest.IsZero() && !env.Destination.IsZero() {
		return Decision{Action: ActionDeliver, Envelope: env}
	}

	next, ok := table.Lookup(dest.Next())

	if !ok {
		target := dest.Next()

		if dest.IsZero() {
			target = "default route"
		}

		return Decision{Action: ActionUnreachable, Envelope: env, Reason: fmt.Sprintf("no route to %s", target)}
	}

	return Decision{Action: ActionForward, Envelope: env.WithDestination(dest), NextHop: next}
}
