package addressing

// SourceRouting describes where a message is going: nowhere in particular (standard mode),
// everywhere (broadcast), a single node or an explicit ordered list of hops.
type SourceRouting struct {
	hops []NodeID
}

var (
	// ZeroRouting carries no explicit destination
	ZeroRouting = SourceRouting{}
	// BroadcastRouting addresses every reachable node
	BroadcastRouting = SourceRouting{hops: []NodeID{Broadcast}}
)

// To builds a single-hop destination
func To(id NodeID) SourceRouting {
	if id == "" {
		return ZeroRouting
	}

	return SourceRouting{hops: []NodeID{id}}
}

// Via builds an explicit source route; hops are evaluated first to last
func Via(hops ...NodeID) SourceRouting {
	if len(hops) == 0 {
		return ZeroRouting
	}

	cp := make([]NodeID, len(hops))
	copy(cp, hops)

	return SourceRouting{hops: cp}
}

// ReplyDestination addresses a reply to the node that originated a message
// with the given recorded path. Every relay routes toward that node on its own.
func ReplyDestination(path NetworkPath) SourceRouting {
	if path.IsEmpty() {
		return ZeroRouting
	}

	return To(path.Source())
}

// Next returns the immediate next hop or Zero
func (r SourceRouting) Next() NodeID {
	if len(r.hops) == 0 {
		return Zero
	}

	return r.hops[0]
}

// Final returns the last hop (the intended recipient) or Zero
func (r SourceRouting) Final() NodeID {
	if len(r.hops) == 0 {
		return Zero
	}

	return r.hops[len(r.hops)-1]
}

// Rest returns the routing with the first hop consumed
func (r SourceRouting) Rest() SourceRouting {
	if len(r.hops) <= 1 {
		return ZeroRouting
	}

	return Via(r.hops[1:]...)
}

func (r SourceRouting) Len() int {
	return len(r.hops)
}

func (r SourceRouting) Hops() []NodeID {
	cp := make([]NodeID, len(r.hops))
	copy(cp, r.hops)
	return cp
}

func (r SourceRouting) IsZero() bool {
	return len(r.hops) == 0 || (len(r.hops) == 1 && r.hops[0].IsZero())
}

func (r SourceRouting) IsBroadcast() bool {
	return len(r.hops) == 1 && r.hops[0].IsBroadcast()
}

func (r SourceRouting) Equal(other SourceRouting) bool {
	return equalHops(r.hops, other.hops)
}

func (r SourceRouting) String() string {
	if len(r.hops) == 0 {
		return "-"
	}

	return joinHops(r.hops)
}

func (r SourceRouting) MarshalJSON() ([]byte, error) {
	return encodeHops(r.hops)
}

func (r *SourceRouting) UnmarshalJSON(data []byte) error {
	hops, err := decodeHops(data)

	if err != nil {
		return err
	}

	*r = Via(hops...)
	return nil
}
