package source

import "encoding/json"

// The provider answers in one of two envelopes depending on deployment mode:
// the API serves `{"data": [...], "count": n}`, static publishing serves the
// bare array. Both decode to the same canonical records.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeList decodes a collection response in either envelope. A body that
// is valid JSON but matches neither shape decodes to an empty list, so
// callers can fall back to the local store instead of failing the read.
func decodeList[T any](body []byte) []T {
	var items []T
	if err := json.Unmarshal(body, &items); err == nil {
		return items
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		items = nil
		if err := json.Unmarshal(env.Data, &items); err == nil {
			return items
		}
	}

	return nil
}

// decodeItem decodes a single-record response, tolerating the same
// data-wrapped envelope. The envelope is tried first: a wrapped body also
// decodes as a bare record, just with every field zero.
func decodeItem[T any](body []byte) (T, bool) {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		var wrapped T
		if err := json.Unmarshal(env.Data, &wrapped); err == nil {
			return wrapped, true
		}
	}

	var item T
	if err := json.Unmarshal(body, &item); err == nil {
		return item, true
	}

	var zero T
	return zero, false
}
