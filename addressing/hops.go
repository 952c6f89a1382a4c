package addressing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeHops implements the wire rule shared by destinations and network paths:
// a single hop is written as a bare string, anything else as an array.
func encodeHops(hops []NodeID) ([]byte, error) {
	if len(hops) == 1 {
		return json.Marshal(string(hops[0]))
	}

	list := make([]string, len(hops))

	for i, hop := range hops {
		list[i] = string(hop)
	}

	return json.Marshal(list)
}

// decodeHops accepts either a string (one hop) or an array of strings
func decodeHops(raw []byte) ([]NodeID, error) {
	raw = bytes.TrimSpace(raw)

	if len(raw) == 0 {
		return nil, fmt.Errorf("hops must be a string or an array of strings")
	}

	switch raw[0] {
	case '"':
		var str string

		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, err
		}

		id, err := ParseNodeID(str)

		if err != nil {
			return nil, err
		}

		return []NodeID{id}, nil
	case '[':
		var list []json.RawMessage

		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}

		hops := make([]NodeID, 0, len(list))

		for i, el := range list {
			var str string

			if err := json.Unmarshal(el, &str); err != nil {
				return nil, fmt.Errorf("hop #%d is not a string: %s", i, el)
			}

			id, err := ParseNodeID(str)

			if err != nil {
				return nil, fmt.Errorf("hop #%d: %v", i, err)
			}

			hops = append(hops, id)
		}

		return hops, nil
	default:
		return nil, fmt.Errorf("hops must be a string or an array of strings, got: %s", raw)
	}
}

func joinHops(hops []NodeID) string {
	var buf bytes.Buffer

	for i, hop := range hops {
		if i > 0 {
			buf.WriteString(" -> ")
		}
		buf.WriteString(string(hop))
	}

	return buf.String()
}

func equalHops(a, b []NodeID) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
