package ctxstate

import (
	"encoding/json"
	"time"
)

// normalize converts an arbitrary value into the closed
// JSON-representable tree the store holds. The second return is false
// when the value has no representation and must be dropped.
//
// Common shapes take the fast path; anything else goes through a JSON
// round-trip, which also covers structs and named types. Maps and
// slices are copied, so the store never aliases caller-owned data.
func normalize(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number:
		return val, true
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), true
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if n, ok := normalize(item); ok {
				out[k] = n
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if n, ok := normalize(item); ok {
				out = append(out, n)
			}
		}
		return out, true
	}

	// Fallback: JSON round-trip. Unrepresentable values fail the
	// marshal and are dropped.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// copyMap deep-copies an already-normalized map.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
