package message

import (
	"encoding/json"
	"strings"
	"time"
)

// Role represents the role of the message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Chunk is a single piece of message content, either plain text or a
// structured JSON value. Exactly one of the fields is set.
type Chunk struct {
	Text       string          `json:"text,omitempty"`
	Structured json.RawMessage `json:"structured,omitempty"`
}

// TextChunk wraps plain text as a content chunk.
func TextChunk(text string) Chunk {
	return Chunk{Text: text}
}

// StructuredChunk wraps an arbitrary value as a structured content chunk.
func StructuredChunk(v any) Chunk {
	raw, err := json.Marshal(v)
	if err != nil {
		raw, _ = json.Marshal(err.Error())
	}
	return Chunk{Structured: raw}
}

// IsStructured reports whether the chunk carries a structured value.
func (c Chunk) IsStructured() bool {
	return len(c.Structured) > 0
}

// Message represents a single message in a conversation
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Chunks    []Chunk    `json:"chunks,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	ToolID    string     `json:"tool_id,omitempty"`   // For tool output messages
	ToolName  string     `json:"tool_name,omitempty"` // For tool output messages
	CreatedAt time.Time  `json:"created_at"`
}

// ToolCall represents a tool invocation request
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// NewSystem creates a system message.
func NewSystem(text string) *Message {
	return newMessage(RoleSystem, TextChunk(text))
}

// NewUser creates a user message.
func NewUser(chunks ...Chunk) *Message {
	return newMessage(RoleUser, chunks...)
}

// NewUserText creates a user message holding a single text chunk.
func NewUserText(text string) *Message {
	return NewUser(TextChunk(text))
}

// NewAssistant creates an assistant message carrying text and the tool
// calls requested in the same round. ToolCalls may be empty.
func NewAssistant(text string, toolCalls []ToolCall) *Message {
	msg := newMessage(RoleAssistant)
	if text != "" {
		msg.Chunks = append(msg.Chunks, TextChunk(text))
	}
	msg.ToolCalls = toolCalls
	return msg
}

// NewToolOutput creates the result message for a tool call.
func NewToolOutput(callID, toolName string, chunks []Chunk) *Message {
	msg := newMessage(RoleTool, chunks...)
	msg.ToolID = callID
	msg.ToolName = toolName
	return msg
}

func newMessage(role Role, chunks ...Chunk) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Chunks:    chunks,
		CreatedAt: time.Now(),
	}
}

// Text concatenates the text chunks of the message. Structured chunks
// are rendered as their raw JSON so tool results survive round-trips
// through text-only backends.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range m.Chunks {
		if c.IsStructured() {
			sb.Write(c.Structured)
			continue
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if len(msg.Chunks) > 0 {
		cloned.Chunks = make([]Chunk, len(msg.Chunks))
		for i, c := range msg.Chunks {
			cloned.Chunks[i] = cloneChunk(c)
		}
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			cloned.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return &cloned
}

// CloneAll copies a slice of messages.
func CloneAll(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

func cloneChunk(c Chunk) Chunk {
	cloned := Chunk{Text: c.Text}
	if len(c.Structured) > 0 {
		cloned.Structured = append(json.RawMessage(nil), c.Structured...)
	}
	return cloned
}

func cloneToolCall(call ToolCall) ToolCall {
	cloned := ToolCall{
		ID:   call.ID,
		Name: call.Name,
	}
	if call.Args != nil {
		cloned.Args = make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			cloned.Args[k] = v
		}
	}
	return cloned
}

// generateID generates a unique message ID
func generateID() string {
	// Simple implementation using timestamp
	// In production, consider using UUID
	return time.Now().Format("20060102150405.000000000")
}
