package partial

import (
	"encoding/json"
	"testing"
)

func TestRepairClosesTruncatedJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"open object", `{`, `{}`},
		{"open array", `[`, `[]`},
		{"unterminated string value", `{"color": "re`, `{"color": "re"}`},
		{"unterminated key", `{"colo`, `{"colo":null}`},
		{"key without value", `{"a":`, `{"a":null}`},
		{"trailing object comma", `{"a":1,`, `{"a":1}`},
		{"trailing array comma", `[1, `, `[1]`},
		{"complete trailing number", `{"name": "Ada", "age": 3`, `{"name": "Ada", "age": 3}`},
		{"partial literal", `{"ok": tru`, `{"ok": null}`},
		{"partial literal in array", `[1, tru`, `[1]`},
		{"nested containers", `{"a": [1, {"b": "x`, `{"a": [1, {"b": "x"}]}`},
		{"nested close", `{"items": ["a", "b`, `{"items": ["a", "b"]}`},
		{"top-level string", `"hello wor`, `"hello wor"`},
		{"dangling escape", `{"a": "x\`, `{"a": "x"}`},
		{"partial unicode escape", `"a\u00e`, `"a"`},
		{"escaped quote kept", `"a\"b`, `"a\"b"`},
		{"trailing number prefix", `{"n": 12.`, `{"n": null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Repair(tc.in)
			if got != tc.want {
				t.Fatalf("Repair(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !json.Valid([]byte(got)) && got != "" {
				t.Fatalf("Repair(%q) produced invalid JSON %q", tc.in, got)
			}
		})
	}
}

func TestRepairIdempotentOnValidJSON(t *testing.T) {
	valid := []string{
		`{}`,
		`[]`,
		`null`,
		`true`,
		`42`,
		`"plain"`,
		`{"a":1}`,
		`{"a": {"b": [1, 2, 3]}, "c": "text"}`,
		`[{"x": null}, false, "y"]`,
		"{\n  \"pretty\": [1, 2]\n}",
	}
	for _, j := range valid {
		if got := Repair(j); got != j {
			t.Errorf("Repair(%q) = %q, want input unchanged", j, got)
		}
	}
}

func TestRepairUnsalvageableInput(t *testing.T) {
	// A bare literal prefix has no valid JSON prefix at all; the result
	// is empty and the caller treats it as "no partial yet".
	if got := Repair(`tru`); got != "" {
		t.Errorf("Repair(%q) = %q, want empty", `tru`, got)
	}
}

func TestRepairGrowingBuffer(t *testing.T) {
	full := `{"city": "Berlin", "temps": [18, 21, 19], "sunny": true}`

	// Every prefix must repair to valid JSON (or empty), and the full
	// buffer must come back unchanged.
	for i := 1; i <= len(full); i++ {
		got := Repair(full[:i])
		if got == "" {
			continue
		}
		if !json.Valid([]byte(got)) {
			t.Fatalf("prefix %q repaired to invalid JSON %q", full[:i], got)
		}
	}
	if got := Repair(full); got != full {
		t.Errorf("full buffer changed: %q", got)
	}
}
