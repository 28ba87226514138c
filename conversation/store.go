package conversation

import (
	"errors"
	"sync"

	"github.com/sweetpotato0/chatloop/message"
)

var (
	// ErrDraftOpen is returned when an operation requires no draft but
	// an in-progress assistant message is open.
	ErrDraftOpen = errors.New("conversation: assistant draft already open")

	// ErrNoDraft is returned when ReplaceLast, Finalize or Abort is
	// called without an open draft. This is a programming error in the
	// caller, never a recoverable runtime condition.
	ErrNoDraft = errors.New("conversation: no assistant draft open")
)

// Store owns the ordered message history of one conversation.
//
// History is append-mostly. The only message that may ever change is
// the in-progress assistant message of the current round, managed
// through the Begin/ReplaceLast/Finalize/Abort draft protocol. Once a
// round is finalized its messages are immutable.
type Store struct {
	mu       sync.Mutex
	messages []*message.Message
	draft    bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a finalized message to the end of the history.
func (s *Store) Append(msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft {
		return ErrDraftOpen
	}
	s.messages = append(s.messages, msg)
	return nil
}

// Begin opens the in-progress assistant draft for the current round,
// appending it to the history so snapshots can show live updates.
func (s *Store) Begin(msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft {
		return ErrDraftOpen
	}
	s.messages = append(s.messages, msg)
	s.draft = true
	return nil
}

// ReplaceLast publishes an incremental update of the open draft. It is
// permitted only between Begin and Finalize/Abort.
func (s *Store) ReplaceLast(msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft {
		return ErrNoDraft
	}
	s.messages[len(s.messages)-1] = msg
	return nil
}

// Finalize replaces the draft with the round's final assistant message
// and closes the draft. The message is immutable afterwards.
func (s *Store) Finalize(msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft {
		return ErrNoDraft
	}
	s.messages[len(s.messages)-1] = msg
	s.draft = false
	return nil
}

// Abort discards the open draft. Finalized history is untouched; this
// is the cancellation path for a round that never completed.
func (s *Store) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft {
		return ErrNoDraft
	}
	s.messages = s.messages[:len(s.messages)-1]
	s.draft = false
	return nil
}

// Snapshot returns a deep copy of the ordered history.
func (s *Store) Snapshot() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return message.CloneAll(s.messages)
}

// Len returns the number of messages, including an open draft.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
