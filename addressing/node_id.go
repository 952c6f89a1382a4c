// Package addressing contains the value types used to route OCPP messages through
// an overlay network: networking node identifiers, recorded network paths and
// source routing destinations.
package addressing

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxNodeIDLength is the maximum length of a networking node identifier (in bytes)
const MaxNodeIDLength = 255

// NodeID identifies a participant of the overlay network (charging station, networking node or CSMS)
type NodeID string

const (
	// Zero means "no explicit source or destination"
	Zero NodeID = "0"
	// Broadcast addresses all reachable nodes
	Broadcast NodeID = "*"
)

// ParseNodeID validates and normalizes a raw node identifier
func ParseNodeID(raw string) (NodeID, error) {
	id := strings.TrimSpace(raw)

	if id == "" {
		return "", fmt.Errorf("networking node id must not be empty")
	}

	if len(id) > MaxNodeIDLength {
		return "", fmt.Errorf("networking node id is too long: %d bytes", len(id))
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("networking node id contains control characters: %q", id)
		}
	}

	return NodeID(id), nil
}

// MustParseNodeID is like ParseNodeID but panics on invalid input
func MustParseNodeID(raw string) NodeID {
	id, err := ParseNodeID(raw)
	if err != nil {
		panic(err)
	}

	return id
}

func (id NodeID) String() string {
	return string(id)
}

// IsZero returns true for the empty value and the Zero sentinel
func (id NodeID) IsZero() bool {
	return id == "" || id == Zero
}

func (id NodeID) IsBroadcast() bool {
	return id == Broadcast
}
