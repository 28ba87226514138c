// Package openai adapts the OpenAI chat-completions API to the
// normalized transport stream.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/transport"
)

// Config holds OpenAI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
}

// Transport streams chat completions as normalized events.
type Transport struct {
	client openai.Client
}

// New creates an OpenAI transport.
func New(cfg Config) *Transport {
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	return &Transport{client: openai.NewClient(options...)}
}

// Open implements transport.Transport.
func (t *Transport) Open(ctx context.Context, history []*message.Message, tools []map[string]any, opts transport.Options) iter.Seq2[transport.Event, error] {
	return func(yield func(transport.Event, error) bool) {
		params, err := buildParams(history, tools, opts)
		if err != nil {
			yield(transport.Event{}, err)
			return
		}

		stream := t.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		finish := ""
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				ev := transport.Event{
					Kind: transport.KindTextDelta,
					Text: choice.Delta.Content,
				}
				if !yield(ev, nil) {
					return
				}
			}

			for _, tc := range choice.Delta.ToolCalls {
				ev := transport.Event{
					Kind: transport.KindToolCallDelta,
					ToolCall: &transport.ToolCallDelta{
						Index:          int(tc.Index),
						ID:             tc.ID,
						Name:           tc.Function.Name,
						ArgumentsDelta: tc.Function.Arguments,
					},
				}
				if !yield(ev, nil) {
					return
				}
			}

			if choice.FinishReason != "" {
				finish = choice.FinishReason
			}
		}
		if err := stream.Err(); err != nil {
			yield(transport.Event{}, fmt.Errorf("openai stream: %w", err))
			return
		}

		kind := transport.KindCompleted
		if finish == "length" || finish == "content_filter" {
			kind = transport.KindIncomplete
		}
		yield(transport.Event{Kind: kind}, nil)
	}
}

func buildParams(history []*message.Message, tools []map[string]any, opts transport.Options) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(opts.Model),
		Messages: encodeHistory(history),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(opts.MaxTokens)
	}
	if len(opts.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopSequences,
		}
	}
	if opts.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if len(tools) > 0 {
		encoded, err := encodeTools(tools)
		if err != nil {
			return params, err
		}
		params.Tools = encoded
	}
	return params, nil
}

func encodeHistory(history []*message.Message) []openai.ChatCompletionMessageParamUnion {
	encoded := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case message.RoleSystem:
			encoded = append(encoded, openai.SystemMessage(msg.Text()))
		case message.RoleUser:
			encoded = append(encoded, openai.UserMessage(msg.Text()))
		case message.RoleAssistant:
			assistant := openai.AssistantMessage(msg.Text())
			if len(msg.ToolCalls) > 0 && assistant.OfAssistant != nil {
				assistant.OfAssistant.ToolCalls = encodeToolCalls(msg.ToolCalls)
			}
			encoded = append(encoded, assistant)
		case message.RoleTool:
			encoded = append(encoded, openai.ToolMessage(msg.Text(), msg.ToolID))
		}
	}
	return encoded
}

func encodeToolCalls(calls []message.ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	params := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
	for _, tc := range calls {
		params = append(params, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: marshalArgs(tc.Args),
				},
			},
		})
	}
	return params
}

func marshalArgs(args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// encodeTools converts function-wrapped tool schemas into SDK params.
func encodeTools(tools []map[string]any) ([]openai.ChatCompletionToolUnionParam, error) {
	encoded := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("openai: tool schema missing function block")
		}
		name, _ := fn["name"].(string)
		def := shared.FunctionDefinitionParam{Name: name}
		if desc, ok := fn["description"].(string); ok && desc != "" {
			def.Description = openai.String(desc)
		}
		if parameters, ok := fn["parameters"].(map[string]any); ok {
			def.Parameters = shared.FunctionParameters(parameters)
		}
		encoded = append(encoded, openai.ChatCompletionFunctionTool(def))
	}
	return encoded, nil
}
