package tokenizer

import "testing"

func TestHeuristicCounter(t *testing.T) {
	h := Heuristic{}
	if got := h.CountTokens(""); got != 0 {
		t.Errorf("empty text = %d tokens", got)
	}
	if got := h.CountTokens("abcd"); got != 1 {
		t.Errorf("4 chars = %d tokens, want 1", got)
	}
	if got := h.CountTokens("abcde"); got != 2 {
		t.Errorf("5 chars = %d tokens, want 2", got)
	}
}
