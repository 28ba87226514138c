package transport

import (
	"encoding/json"
	"strings"

	"github.com/sweetpotato0/chatloop/message"
)

// PartialToolCall is one slot of a streamed tool invocation being
// reassembled from fragments.
type PartialToolCall struct {
	ID   string
	Name string
	args strings.Builder
}

// ArgumentsText returns the argument fragments concatenated so far.
// The text need not be valid JSON until the round ends.
func (p *PartialToolCall) ArgumentsText() string {
	return p.args.String()
}

// Complete reports whether the slot has received both an id and a name.
func (p *PartialToolCall) Complete() bool {
	return p.ID != "" && p.Name != ""
}

// Accumulator merges streamed tool-call fragments into complete
// invocations, indexed by the stream-assigned slot. Sparse or
// out-of-order slot arrival is tolerated by padding with empty slots.
//
// It is intentionally tolerant: a slot that never completes, or whose
// argument text fails to parse, is the backend's omission and is
// dropped at finalization rather than failing the round.
type Accumulator struct {
	slots []*PartialToolCall
}

// Apply merges one fragment into its slot.
func (a *Accumulator) Apply(d ToolCallDelta) {
	if d.Index < 0 {
		return
	}
	for len(a.slots) <= d.Index {
		a.slots = append(a.slots, &PartialToolCall{})
	}
	slot := a.slots[d.Index]
	if d.ID != "" {
		slot.ID = d.ID
	}
	if d.Name != "" {
		slot.Name = d.Name
	}
	slot.args.WriteString(d.ArgumentsDelta)
}

// Len returns the number of slots seen so far, including gaps.
func (a *Accumulator) Len() int {
	return len(a.slots)
}

// Slot returns the partial call at the given index, or nil.
func (a *Accumulator) Slot(i int) *PartialToolCall {
	if i < 0 || i >= len(a.slots) {
		return nil
	}
	return a.slots[i]
}

// Finalize converts every complete slot into a ToolCall, in slot order.
// Empty argument text decodes as an empty argument map.
func (a *Accumulator) Finalize() []message.ToolCall {
	var calls []message.ToolCall
	for _, slot := range a.slots {
		if !slot.Complete() {
			continue
		}
		args := make(map[string]any)
		if text := slot.ArgumentsText(); text != "" {
			if err := json.Unmarshal([]byte(text), &args); err != nil {
				continue
			}
		}
		calls = append(calls, message.ToolCall{
			ID:   slot.ID,
			Name: slot.Name,
			Args: args,
		})
	}
	return calls
}
