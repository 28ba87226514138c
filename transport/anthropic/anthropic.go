// Package anthropic adapts the Anthropic messages API to the
// normalized transport stream.
package anthropic

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/transport"
)

// DefaultMaxTokens is applied when the caller leaves MaxTokens unset;
// the messages API requires an explicit value.
const DefaultMaxTokens = 4096

// Config holds Anthropic connection settings.
type Config struct {
	APIKey  string
	BaseURL string
}

// Transport streams messages-API responses as normalized events.
type Transport struct {
	client anthropic.Client
}

// New creates an Anthropic transport.
func New(cfg Config) *Transport {
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	return &Transport{client: anthropic.NewClient(options...)}
}

// Open implements transport.Transport.
func (t *Transport) Open(ctx context.Context, history []*message.Message, tools []map[string]any, opts transport.Options) iter.Seq2[transport.Event, error] {
	return func(yield func(transport.Event, error) bool) {
		params, err := buildParams(history, tools, opts)
		if err != nil {
			yield(transport.Event{}, err)
			return
		}

		stream := t.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		stopReason := ""
		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_start":
				start := event.AsContentBlockStart()
				if start.ContentBlock.Type != "tool_use" {
					continue
				}
				ev := transport.Event{
					Kind: transport.KindToolCallDelta,
					ToolCall: &transport.ToolCallDelta{
						Index: int(start.Index),
						ID:    start.ContentBlock.ID,
						Name:  start.ContentBlock.Name,
					},
				}
				if !yield(ev, nil) {
					return
				}
			case "content_block_delta":
				delta := event.AsContentBlockDelta()
				switch delta.Delta.Type {
				case "text_delta":
					if delta.Delta.Text == "" {
						continue
					}
					ev := transport.Event{
						Kind: transport.KindTextDelta,
						Text: delta.Delta.Text,
					}
					if !yield(ev, nil) {
						return
					}
				case "input_json_delta":
					ev := transport.Event{
						Kind: transport.KindToolCallDelta,
						ToolCall: &transport.ToolCallDelta{
							Index:          int(delta.Index),
							ArgumentsDelta: delta.Delta.PartialJSON,
						},
					}
					if !yield(ev, nil) {
						return
					}
				}
			case "message_delta":
				md := event.AsMessageDelta()
				if md.Delta.StopReason != "" {
					stopReason = string(md.Delta.StopReason)
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield(transport.Event{}, fmt.Errorf("anthropic stream: %w", err))
			return
		}

		kind := transport.KindCompleted
		if stopReason == "max_tokens" {
			kind = transport.KindIncomplete
		}
		yield(transport.Event{Kind: kind}, nil)
	}
}

func buildParams(history []*message.Message, tools []map[string]any, opts transport.Options) (anthropic.MessageNewParams, error) {
	var params anthropic.MessageNewParams
	if opts.JSONResponse {
		return params, &transport.UnsupportedConfigError{
			Feature:    "json response mode",
			Provider:   "anthropic",
			Suggestion: "constrain output through a tool schema instead",
		}
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens < 1 {
		return params, &transport.MinTokensError{
			Provider:  "anthropic",
			Minimum:   1,
			Requested: opts.MaxTokens,
		}
	}

	system, conversation := encodeHistory(history)
	params = anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  conversation,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if opts.Temperature > 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = param.NewOpt(opts.TopP)
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	if len(tools) > 0 {
		params.Tools = encodeTools(tools)
	}
	return params, nil
}

// encodeHistory splits system text out (the messages API carries it as a
// top-level field) and renders tool calls and results as content blocks.
func encodeHistory(history []*message.Message) (string, []anthropic.MessageParam) {
	var system []string
	conversation := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, msg.Text())
		case message.RoleUser:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case message.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := msg.Text(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, anthropic.NewAssistantMessage(blocks...))
			}
		case message.RoleTool:
			conversation = append(conversation, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolID, msg.Text(), false)))
		}
	}
	return strings.Join(system, "\n"), conversation
}

// encodeTools unwraps the function-wrapped schemas into input_schema
// tool params.
func encodeTools(tools []map[string]any) []anthropic.ToolUnionParam {
	encoded := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		tp := anthropic.ToolParam{Name: name}
		if desc, ok := fn["description"].(string); ok && desc != "" {
			tp.Description = param.NewOpt(desc)
		}
		if parameters, ok := fn["parameters"].(map[string]any); ok {
			tp.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: parameters["properties"],
			}
			if req, ok := parameters["required"].([]string); ok {
				tp.InputSchema.Required = req
			}
		}
		encoded = append(encoded, anthropic.ToolUnionParam{OfTool: &tp})
	}
	return encoded
}
