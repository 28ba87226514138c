package anthropic

import (
	"errors"
	"testing"

	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/transport"
)

func TestBuildParamsRejectsJSONMode(t *testing.T) {
	_, err := buildParams(nil, nil, transport.Options{Model: "m", JSONResponse: true})
	var cfgErr *transport.UnsupportedConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want UnsupportedConfigError", err)
	}
	if cfgErr.Provider != "anthropic" {
		t.Errorf("provider = %q", cfgErr.Provider)
	}
}

func TestBuildParamsRejectsNegativeMaxTokens(t *testing.T) {
	_, err := buildParams(nil, nil, transport.Options{Model: "m", MaxTokens: -5})
	var minErr *transport.MinTokensError
	if !errors.As(err, &minErr) {
		t.Fatalf("err = %v, want MinTokensError", err)
	}
	if minErr.Requested != -5 || minErr.Minimum != 1 {
		t.Errorf("min tokens error = %+v", minErr)
	}
}

func TestBuildParamsDefaultsMaxTokens(t *testing.T) {
	params, err := buildParams(nil, nil, transport.Options{Model: "m"})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if params.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", params.MaxTokens, DefaultMaxTokens)
	}
}

func TestEncodeHistoryLiftsSystemText(t *testing.T) {
	history := []*message.Message{
		message.NewSystem("rule one"),
		message.NewSystem("rule two"),
		message.NewUserText("hi"),
		message.NewAssistant("hello", nil),
	}
	system, conversation := encodeHistory(history)
	if system != "rule one\nrule two" {
		t.Errorf("system = %q", system)
	}
	if len(conversation) != 2 {
		t.Errorf("conversation = %d messages, want 2", len(conversation))
	}
}

func TestEncodeHistoryToolExchange(t *testing.T) {
	history := []*message.Message{
		message.NewUserText("calc"),
		message.NewAssistant("", []message.ToolCall{{ID: "tc1", Name: "add", Args: map[string]any{"a": 1.0}}}),
		message.NewToolOutput("tc1", "add", []message.Chunk{message.TextChunk("2")}),
	}
	_, conversation := encodeHistory(history)
	if len(conversation) != 3 {
		t.Fatalf("conversation = %d messages, want 3", len(conversation))
	}
	// Tool results travel back as user-role blocks on this API.
	if conversation[2].Role != "user" {
		t.Errorf("tool result role = %q, want user", conversation[2].Role)
	}
}

func TestEncodeToolsUnwrapsFunctionSchema(t *testing.T) {
	tools := []map[string]any{{
		"type": "function",
		"function": map[string]any{
			"name":        "add",
			"description": "adds numbers",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"a": map[string]any{"type": "number"},
				},
				"required": []string{"a"},
			},
		},
	}}
	encoded := encodeTools(tools)
	if len(encoded) != 1 || encoded[0].OfTool == nil {
		t.Fatalf("encoded = %+v", encoded)
	}
	tp := encoded[0].OfTool
	if tp.Name != "add" {
		t.Errorf("name = %q", tp.Name)
	}
	if len(tp.InputSchema.Required) != 1 || tp.InputSchema.Required[0] != "a" {
		t.Errorf("required = %+v", tp.InputSchema.Required)
	}
}
