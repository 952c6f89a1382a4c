package addressing

// NetworkPath records the hops a message has actually traversed, oldest first.
// The zero value is the empty path ("not yet recorded").
// NetworkPath is immutable: Append returns a new value and never touches the receiver.
type NetworkPath struct {
	hops []NodeID
}

// Empty is a path with no recorded hops
var Empty = NetworkPath{}

func NewNetworkPath(hops ...NodeID) NetworkPath {
	if len(hops) == 0 {
		return Empty
	}

	cp := make([]NodeID, len(hops))
	copy(cp, hops)

	return NetworkPath{hops: cp}
}

// Append returns a new path with the id added to the tail
func (p NetworkPath) Append(id NodeID) NetworkPath {
	hops := make([]NodeID, len(p.hops), len(p.hops)+1)
	copy(hops, p.hops)

	return NetworkPath{hops: append(hops, id)}
}

func (p NetworkPath) Len() int {
	return len(p.hops)
}

func (p NetworkPath) IsEmpty() bool {
	return len(p.hops) == 0
}

// Hops returns a copy of the recorded hops
func (p NetworkPath) Hops() []NodeID {
	cp := make([]NodeID, len(p.hops))
	copy(cp, p.hops)
	return cp
}

// Source returns the originating node (the first recorded hop) or Zero
func (p NetworkPath) Source() NodeID {
	if len(p.hops) == 0 {
		return Zero
	}

	return p.hops[0]
}

// Last returns the most recent hop or Zero
func (p NetworkPath) Last() NodeID {
	if len(p.hops) == 0 {
		return Zero
	}

	return p.hops[len(p.hops)-1]
}

func (p NetworkPath) Contains(id NodeID) bool {
	for _, hop := range p.hops {
		if hop == id {
			return true
		}
	}

	return false
}

// Reverse returns the hops newest first
func (p NetworkPath) Reverse() NetworkPath {
	n := len(p.hops)
	hops := make([]NodeID, n)

	for i, hop := range p.hops {
		hops[n-1-i] = hop
	}

	return NetworkPath{hops: hops}
}

func (p NetworkPath) Equal(other NetworkPath) bool {
	return equalHops(p.hops, other.hops)
}

func (p NetworkPath) String() string {
	return joinHops(p.hops)
}

func (p NetworkPath) MarshalJSON() ([]byte, error) {
	return encodeHops(p.hops)
}

func (p *NetworkPath) UnmarshalJSON(data []byte) error {
	hops, err := decodeHops(data)

	if err != nil {
		return err
	}

	*p = NewNetworkPath(hops...)
	return nil
}
