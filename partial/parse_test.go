package partial

import (
	"reflect"
	"testing"
)

type forecast struct {
	City  string `json:"city"`
	Temps []int  `json:"temps"`
	Sunny bool   `json:"sunny"`
}

func TestParseStringPassthrough(t *testing.T) {
	raw := `this is { not json`
	got, ok := Parse[string](raw)
	if !ok {
		t.Fatal("Parse[string] should always succeed")
	}
	if got != raw {
		t.Errorf("Parse[string] = %q, want verbatim input", got)
	}
}

func TestParseStructFromTruncatedJSON(t *testing.T) {
	got, ok := Parse[forecast](`{"city": "Berlin", "temps": [18, 2`)
	if !ok {
		t.Fatal("expected a partial value")
	}
	want := forecast{City: "Berlin", Temps: []int{18, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("partial = %+v, want %+v", got, want)
	}
}

func TestParseReturnsNoneOnCoercionFailure(t *testing.T) {
	// temps is an array of ints; a truncated buffer that repairs to a
	// null element is fine, but a type mismatch is not.
	if _, ok := Parse[forecast](`{"temps": "oops"`); ok {
		t.Error("expected no partial for mismatched types")
	}
	if _, ok := Parse[forecast](``); ok {
		t.Error("expected no partial for empty input")
	}
	if _, ok := Parse[forecast](`tru`); ok {
		t.Error("expected no partial for unsalvageable input")
	}
}

func TestParseEventuallyMatchesDirectDecode(t *testing.T) {
	full := `{"city": "Oslo", "temps": [3, 5, 4], "sunny": false}`
	deltas := []string{`{"city": "Os`, `lo", "temps": [3, 5`, `, 4], "sunny"`, `: false}`}

	var buf string
	var last forecast
	var sawPartial bool
	for _, d := range deltas {
		buf += d
		if v, ok := Parse[forecast](buf); ok {
			last = v
			sawPartial = true
		}
	}

	if buf != full {
		t.Fatalf("deltas do not reassemble the full document: %q", buf)
	}
	if !sawPartial {
		t.Fatal("no partial produced for any prefix")
	}
	direct, ok := Parse[forecast](full)
	if !ok {
		t.Fatal("full document failed to parse")
	}
	if !reflect.DeepEqual(last, direct) {
		t.Errorf("final partial %+v != direct decode %+v", last, direct)
	}
}

func TestParseIsPure(t *testing.T) {
	in := `{"city": "Berl`
	a, okA := Parse[forecast](in)
	b, okB := Parse[forecast](in)
	if okA != okB || !reflect.DeepEqual(a, b) {
		t.Error("Parse gave different results for identical input")
	}
}
