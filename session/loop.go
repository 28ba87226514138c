package session

import (
	"context"
	"errors"
	"iter"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/chatloop/conversation"
	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/partial"
	"github.com/sweetpotato0/chatloop/pkg/telemetry"
	"github.com/sweetpotato0/chatloop/transport"
)

// Submit appends the user message and runs generation rounds until the
// model answers without requesting tools, the tool bound is hit, or the
// context is cancelled. The returned sequence yields a fresh partial
// value of T for every text delta; the last yielded value before a nil
// error is the complete response.
//
// Stopping iteration early cancels the round: the in-progress assistant
// message is discarded and the history keeps only fully finished
// messages. Cancellation through ctx behaves the same and yields no
// error.
func (s *Session[T]) Submit(ctx context.Context, msg *message.Message) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if !s.mu.TryLock() {
			yield(zero, ErrBusy)
			return
		}
		defer s.mu.Unlock()

		ctx, span := s.tracer.Start(ctx, "session.submit")
		var runErr error
		defer func() { telemetry.End(span, runErr) }()

		if err := s.ensureProviders(ctx); err != nil {
			runErr = err
			yield(zero, err)
			return
		}
		if err := s.store.Append(msg); err != nil {
			runErr = err
			yield(zero, err)
			return
		}

		toolRounds := 0
		for {
			final, calls, done, err := s.round(ctx, yield)
			if err != nil {
				runErr = err
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					yield(zero, err)
				}
				return
			}
			if !done {
				// Consumer stopped the sequence; draft already dropped.
				return
			}
			if len(calls) == 0 {
				span.SetAttributes(attribute.Int("session.tool_rounds", toolRounds))
				yield(final, nil)
				return
			}

			toolRounds++
			if toolRounds > s.maxToolRounds {
				runErr = &ToolLoopError{MaxRounds: s.maxToolRounds}
				yield(zero, runErr)
				return
			}
			s.logger.Debug("executing tool round",
				"round", toolRounds, "calls", len(calls))
			for _, call := range calls {
				out, err := s.execute(ctx, call)
				if err != nil {
					runErr = err
					yield(zero, err)
					return
				}
				if err := s.store.Append(out); err != nil {
					runErr = err
					yield(zero, err)
					return
				}
			}
		}
	}
}

// SubmitText is a convenience wrapper over Submit for plain text input.
func (s *Session[T]) SubmitText(ctx context.Context, text string) iter.Seq2[T, error] {
	return s.Submit(ctx, message.NewUserText(text))
}

// round streams one model response into the store. It returns the last
// parsed partial, the accumulated tool calls, and done=false when the
// consumer stopped the sequence early.
func (s *Session[T]) round(ctx context.Context, yield func(T, error) bool) (T, []message.ToolCall, bool, error) {
	var zero T

	history := s.store.Snapshot()
	if err := s.store.Begin(message.NewAssistant("", nil)); err != nil {
		return zero, nil, false, err
	}
	s.logger.Debug("round opened", "history", len(history), "model", s.opts.Model)

	var (
		buf      strings.Builder
		acc      transport.Accumulator
		last     T
		terminal *transport.Event
		stopped  bool
	)
	abort := func() {
		if err := s.store.Abort(); err != nil && !errors.Is(err, conversation.ErrNoDraft) {
			s.logger.Warn("abort draft failed", "error", err)
		}
	}

	for ev, err := range s.transport.Open(ctx, history, s.tools.Schemas(), s.opts) {
		if err != nil {
			abort()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return zero, nil, false, err
			}
			return zero, nil, false, &TransportError{Err: err}
		}
		if ctx.Err() != nil {
			abort()
			return zero, nil, false, ctx.Err()
		}

		switch ev.Kind {
		case transport.KindTextDelta:
			buf.WriteString(ev.Text)
			v, ok := partial.Parse[T](buf.String())
			if !ok {
				continue
			}
			last = v
			if err := s.store.ReplaceLast(message.NewAssistant(buf.String(), nil)); err != nil {
				abort()
				return zero, nil, false, err
			}
			if !yield(v, nil) {
				stopped = true
			}
		case transport.KindToolCallDelta:
			if ev.ToolCall != nil {
				acc.Apply(*ev.ToolCall)
			}
		case transport.KindCompleted, transport.KindIncomplete:
			e := ev
			terminal = &e
		}
		if stopped {
			abort()
			return zero, nil, false, nil
		}
	}

	if ctx.Err() != nil {
		abort()
		return zero, nil, false, ctx.Err()
	}
	if terminal == nil {
		abort()
		return zero, nil, false, ErrNoResponse
	}

	text := buf.String()
	if text == "" && terminal.Text != "" {
		text = terminal.Text
	}
	calls := acc.Finalize()
	if err := s.store.Finalize(message.NewAssistant(text, calls)); err != nil {
		return zero, nil, false, err
	}
	if terminal.Kind == transport.KindIncomplete {
		s.logger.Warn("response truncated by token limit", "model", s.opts.Model)
	}
	if v, ok := partial.Parse[T](text); ok {
		last = v
	}
	return last, calls, true, nil
}
