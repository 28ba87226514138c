package transport

import (
	"testing"
)

func TestAccumulatorMergesFragments(t *testing.T) {
	var acc Accumulator
	acc.Apply(ToolCallDelta{Index: 0, ID: "call_1", Name: "calc"})
	acc.Apply(ToolCallDelta{Index: 0, ArgumentsDelta: `{"expr":`})
	acc.Apply(ToolCallDelta{Index: 0, ArgumentsDelta: ` "2+2"}`})

	calls := acc.Finalize()
	if len(calls) != 1 {
		t.Fatalf("finalized %d calls, want 1", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "calc" {
		t.Errorf("call identity = (%q, %q)", calls[0].ID, calls[0].Name)
	}
	if calls[0].Args["expr"] != "2+2" {
		t.Errorf("args = %v", calls[0].Args)
	}
}

func TestAccumulatorSparseSlots(t *testing.T) {
	var acc Accumulator
	acc.Apply(ToolCallDelta{Index: 0, ID: "a", Name: "first", ArgumentsDelta: `{}`})
	acc.Apply(ToolCallDelta{Index: 2, ID: "c", Name: "third", ArgumentsDelta: `{}`})

	if acc.Len() != 3 {
		t.Fatalf("slot count = %d, want 3", acc.Len())
	}
	if acc.Slot(1).Complete() {
		t.Error("slot 1 should never complete")
	}

	calls := acc.Finalize()
	if len(calls) != 2 {
		t.Fatalf("finalized %d calls, want 2", len(calls))
	}
	if calls[0].Name != "first" || calls[1].Name != "third" {
		t.Errorf("finalize order = %q, %q", calls[0].Name, calls[1].Name)
	}
}

func TestAccumulatorDropsUnparseableArguments(t *testing.T) {
	var acc Accumulator
	acc.Apply(ToolCallDelta{Index: 0, ID: "a", Name: "ok", ArgumentsDelta: `{"x": 1}`})
	acc.Apply(ToolCallDelta{Index: 1, ID: "b", Name: "bad", ArgumentsDelta: `{"x":`})

	calls := acc.Finalize()
	if len(calls) != 1 || calls[0].Name != "ok" {
		t.Errorf("finalize = %v, want only the parseable call", calls)
	}
}

func TestAccumulatorEmptyArgumentsBecomeEmptyMap(t *testing.T) {
	var acc Accumulator
	acc.Apply(ToolCallDelta{Index: 0, ID: "a", Name: "noargs"})

	calls := acc.Finalize()
	if len(calls) != 1 {
		t.Fatalf("finalized %d calls, want 1", len(calls))
	}
	if calls[0].Args == nil || len(calls[0].Args) != 0 {
		t.Errorf("args = %v, want empty map", calls[0].Args)
	}
}

func TestAccumulatorIgnoresNegativeIndex(t *testing.T) {
	var acc Accumulator
	acc.Apply(ToolCallDelta{Index: -1, ID: "x", Name: "x"})
	if acc.Len() != 0 {
		t.Error("negative index should be ignored")
	}
}
