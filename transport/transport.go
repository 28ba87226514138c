// Package transport defines the normalized event stream between the
// generation engine and backend adapters. The engine never inspects
// backend-specific fields; adapters under transport/ translate each
// wire format into these events.
package transport

import (
	"context"
	"iter"

	"github.com/sweetpotato0/chatloop/message"
)

// EventKind discriminates normalized stream events.
type EventKind string

const (
	// KindTextDelta carries a fragment of assistant text.
	KindTextDelta EventKind = "text_delta"
	// KindToolCallDelta carries a fragment of a streamed tool call.
	KindToolCallDelta EventKind = "tool_call_delta"
	// KindCompleted terminates a round that finished normally.
	KindCompleted EventKind = "completed"
	// KindIncomplete terminates a round the backend cut short
	// (length limit, content filter). The accumulated output is still
	// usable as a final message.
	KindIncomplete EventKind = "incomplete"
)

// ToolCallDelta is one fragment of a streamed tool invocation. Index is
// the stream-assigned slot; ID and Name may arrive on any fragment and
// ArgumentsDelta grows by concatenation.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// Event is a single normalized stream event. Exactly the fields implied
// by Kind are set; terminal events may carry the backend's final raw
// text in Text.
type Event struct {
	Kind     EventKind
	Text     string
	ToolCall *ToolCallDelta
}

// Terminal reports whether the event ends the round.
func (e Event) Terminal() bool {
	return e.Kind == KindCompleted || e.Kind == KindIncomplete
}

// Options is the capability surface adapters read directly. An adapter
// uses the fields its backend supports and rejects unsupportable
// combinations with UnsupportedConfigError or MinTokensError before
// opening the stream.
type Options struct {
	Model         string
	MaxTokens     int64
	Temperature   float64
	TopP          float64
	StopSequences []string
	// JSONResponse asks the backend to constrain output to JSON, for
	// structured-result conversations on backends that support it.
	JSONResponse bool
}

// Transport opens a normalized event stream for one generation round.
//
// The returned sequence is lazy, finite and non-restartable: it ends
// with a terminal event on success or yields a non-nil error and stops.
// Stream errors carry backend detail; the engine wraps them before they
// reach the caller.
type Transport interface {
	Open(ctx context.Context, history []*message.Message, tools []map[string]any, opts Options) iter.Seq2[Event, error]
}
