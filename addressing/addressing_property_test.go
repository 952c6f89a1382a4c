package addressing

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func nodeIDs(raw []string) []NodeID {
	ids := make([]NodeID, len(raw))

	for i, s := range raw {
		ids[i] = NodeID(s)
	}

	return ids
}

func TestNetworkPathAppendProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("append grows the path by exactly one hop", prop.ForAll(
		func(hops []string, next string) bool {
			p := NewNetworkPath(nodeIDs(hops)...)
			appended := p.Append(NodeID(next))

			return appended.Len() == p.Len()+1 &&
				appended.Last() == NodeID(next) &&
				p.Len() == len(hops)
		},
		gen.SliceOf(gen.Identifier()),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestHopsJSONRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("network path survives JSON round-trip", prop.ForAll(
		func(hops []string) bool {
			p := NewNetworkPath(nodeIDs(hops)...)

			b, err := json.Marshal(p)
			if err != nil {
				return false
			}

			var decoded NetworkPath
			if err := json.Unmarshal(b, &decoded); err != nil {
				return false
			}

			return decoded.Equal(p)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("source routing survives JSON round-trip", prop.ForAll(
		func(hops []string) bool {
			r := Via(nodeIDs(hops)...)

			b, err := json.Marshal(r)
			if err != nil {
				return false
			}

			var decoded SourceRouting
			if err := json.Unmarshal(b, &decoded); err != nil {
				return false
			}

			return decoded.Equal(r)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
