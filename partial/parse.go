package partial

import (
	"encoding/json"
	"strings"
)

// Parse converts the accumulated raw text of a streaming response into
// a partial projection of T. For a plain-text target (T == string) the
// partial is the raw text verbatim. For any other target the text is
// treated as truncated JSON: it is repaired and decoded into T.
//
// The second return value is false whenever no partial is available
// yet — repair, decode or coercion failed. That is an expected,
// non-fatal condition while streaming; a later call with more text may
// succeed. Parse is a pure function of its input and may be called
// repeatedly.
func Parse[T any](raw string) (T, bool) {
	var v T
	if s, ok := any(&v).(*string); ok {
		*s = raw
		return v, true
	}

	repaired := Repair(raw)
	if strings.TrimSpace(repaired) == "" {
		return v, false
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}
