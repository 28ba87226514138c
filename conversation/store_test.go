package conversation

import (
	"errors"
	"testing"

	"github.com/sweetpotato0/chatloop/message"
)

func TestAppendAndSnapshot(t *testing.T) {
	store := NewStore()
	if err := store.Append(message.NewUserText("hi")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(message.NewAssistant("hello", nil)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}
	if snap[0].Role != message.RoleUser || snap[1].Role != message.RoleAssistant {
		t.Errorf("unexpected roles %s, %s", snap[0].Role, snap[1].Role)
	}

	// Snapshot must be isolated from the store.
	snap[0].Chunks[0].Text = "mutated"
	if store.Snapshot()[0].Text() != "hi" {
		t.Error("snapshot shares storage with store")
	}
}

func TestDraftProtocol(t *testing.T) {
	store := NewStore()
	if err := store.Append(message.NewUserText("question")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Begin(message.NewAssistant("", nil)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.ReplaceLast(message.NewAssistant("part", nil)); err != nil {
		t.Fatalf("ReplaceLast: %v", err)
	}
	if got := store.Snapshot()[1].Text(); got != "part" {
		t.Errorf("draft text = %q, want %q", got, "part")
	}
	if err := store.Finalize(message.NewAssistant("partial answer", nil)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := store.Snapshot()[1].Text(); got != "partial answer" {
		t.Errorf("final text = %q, want %q", got, "partial answer")
	}
}

func TestReplaceLastWithoutDraftFails(t *testing.T) {
	store := NewStore()
	if err := store.Append(message.NewUserText("question")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.ReplaceLast(message.NewAssistant("x", nil)); !errors.Is(err, ErrNoDraft) {
		t.Errorf("ReplaceLast without draft = %v, want ErrNoDraft", err)
	}
	if err := store.Finalize(message.NewAssistant("x", nil)); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Finalize without draft = %v, want ErrNoDraft", err)
	}
	if err := store.Abort(); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Abort without draft = %v, want ErrNoDraft", err)
	}
}

func TestAppendWhileDraftOpenFails(t *testing.T) {
	store := NewStore()
	if err := store.Begin(message.NewAssistant("", nil)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Append(message.NewUserText("nope")); !errors.Is(err, ErrDraftOpen) {
		t.Errorf("Append over draft = %v, want ErrDraftOpen", err)
	}
	if err := store.Begin(message.NewAssistant("", nil)); !errors.Is(err, ErrDraftOpen) {
		t.Errorf("double Begin = %v, want ErrDraftOpen", err)
	}
}

func TestAbortDiscardsOnlyDraft(t *testing.T) {
	store := NewStore()
	if err := store.Append(message.NewUserText("question")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Begin(message.NewAssistant("half an ans", nil)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("history length after abort = %d, want 1", len(snap))
	}
	if snap[0].Role != message.RoleUser {
		t.Errorf("surviving message role = %s, want user", snap[0].Role)
	}
}
