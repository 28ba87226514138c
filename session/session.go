// Package session drives one conversation against a generation
// backend: it owns the message history, runs the request/stream/tool
// rounds, and emits typed partial values while a response is still in
// flight.
package session

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/chatloop/conversation"
	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/pkg/logging"
	"github.com/sweetpotato0/chatloop/tokenizer"
	"github.com/sweetpotato0/chatloop/tool"
	"github.com/sweetpotato0/chatloop/transport"
)

// DefaultMaxToolRounds bounds the tool-calling loop of one submit.
const DefaultMaxToolRounds = 10

// Session owns one conversation: its history, a fixed tool registry and
// the transport used for generation rounds. T is the result type the
// caller wants partials of; use string for plain text.
//
// A session allows at most one generation in flight; a concurrent
// Submit fails with ErrBusy. The session stays usable after a round
// finishes or fails, continuing from the accumulated history.
type Session[T any] struct {
	mu sync.Mutex

	transport     transport.Transport
	opts          transport.Options
	tools         *tool.Registry
	store         *conversation.Store
	maxToolRounds int

	providers      []tool.Provider
	providerLoaded []bool

	counter tokenizer.Counter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option is a function that configures a Session.
type Option[T any] func(*Session[T])

// WithSystemPrompt seeds the conversation with a system message.
func WithSystemPrompt[T any](prompt string) Option[T] {
	return func(s *Session[T]) {
		if prompt != "" {
			_ = s.store.Append(message.NewSystem(prompt))
		}
	}
}

// WithTools sets the tool registry. Names must be unique within it.
func WithTools[T any](reg *tool.Registry) Option[T] {
	return func(s *Session[T]) {
		if reg != nil {
			s.tools = reg
		}
	}
}

// WithToolProvider registers a provider whose tools are loaded on the
// next submit and refreshed when the provider signals a change.
func WithToolProvider[T any](p tool.Provider) Option[T] {
	return func(s *Session[T]) {
		if p != nil {
			s.providers = append(s.providers, p)
			s.providerLoaded = append(s.providerLoaded, false)
		}
	}
}

// WithMaxToolRounds overrides the tool-loop bound.
func WithMaxToolRounds[T any](n int) Option[T] {
	return func(s *Session[T]) {
		if n > 0 {
			s.maxToolRounds = n
		}
	}
}

// WithOptions sets the generation options passed to the transport.
func WithOptions[T any](opts transport.Options) Option[T] {
	return func(s *Session[T]) {
		s.opts = opts
	}
}

// WithTokenCounter enables HistoryTokens estimates.
func WithTokenCounter[T any](c tokenizer.Counter) Option[T] {
	return func(s *Session[T]) {
		s.counter = c
	}
}

// WithLogger overrides the session logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(s *Session[T]) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session over the given transport.
func New[T any](tr transport.Transport, opts ...Option[T]) *Session[T] {
	s := &Session[T]{
		transport:     tr,
		tools:         tool.NewRegistry(),
		store:         conversation.NewStore(),
		maxToolRounds: DefaultMaxToolRounds,
		logger:        logging.WithComponent("session"),
		tracer:        otel.Tracer("chatloop/session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the ordered conversation history.
func (s *Session[T]) History() []*message.Message {
	return s.store.Snapshot()
}

// HistoryTokens estimates the token footprint of the history. Returns 0
// when no token counter is configured.
func (s *Session[T]) HistoryTokens() int {
	if s.counter == nil {
		return 0
	}
	total := 0
	for _, msg := range s.store.Snapshot() {
		total += s.counter.CountTokens(msg.Text())
	}
	return total
}

// ensureProviders loads provider tools before a round, refreshing any
// provider that signalled a change since the last submit.
func (s *Session[T]) ensureProviders(ctx context.Context) error {
	for i, p := range s.providers {
		refresh := !s.providerLoaded[i]
		if ch := p.ToolsChanged(); ch != nil {
			select {
			case <-ch:
				refresh = true
			default:
			}
		}
		if !refresh {
			continue
		}

		tools, err := p.Tools(ctx)
		if err != nil {
			return err
		}
		for _, t := range tools {
			if t == nil || t.Name == "" {
				continue
			}
			if err := s.tools.Upsert(t); err != nil {
				return err
			}
		}
		s.providerLoaded[i] = true
	}
	return nil
}
