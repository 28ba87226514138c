// Package gemini adapts the Gemini generateContent REST API to the
// normalized transport stream. It speaks the HTTP API directly over
// server-sent events.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/transport"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Config holds Gemini connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// Transport streams generateContent responses as normalized events.
type Transport struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Gemini transport.
func New(cfg Config) *Transport {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{apiKey: cfg.APIKey, baseURL: baseURL, client: client}
}

type geminiPart struct {
	Text             string        `json:"text,omitempty"`
	FunctionCall     *functionCall `json:"functionCall,omitempty"`
	FunctionResponse *functionResp `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens  int64    `json:"maxOutputTokens,omitempty"`
	Temperature      float64  `json:"temperature,omitempty"`
	TopP             float64  `json:"topP,omitempty"`
	StopSequences    []string `json:"stopSequences,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTools     `json:"tools,omitempty"`
}

type geminiTools struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type geminiChunk struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Open implements transport.Transport.
func (t *Transport) Open(ctx context.Context, history []*message.Message, tools []map[string]any, opts transport.Options) iter.Seq2[transport.Event, error] {
	return func(yield func(transport.Event, error) bool) {
		if opts.JSONResponse && len(tools) > 0 {
			yield(transport.Event{}, &transport.UnsupportedConfigError{
				Feature:    "json response mode combined with tools",
				Provider:   "gemini",
				Suggestion: "drop tools for this round or disable the json constraint",
			})
			return
		}

		body, err := json.Marshal(buildRequest(history, tools, opts))
		if err != nil {
			yield(transport.Event{}, fmt.Errorf("gemini: encode request: %w", err))
			return
		}

		url := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s",
			t.baseURL, opts.Model, t.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			yield(transport.Event{}, fmt.Errorf("gemini: create request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			yield(transport.Event{}, fmt.Errorf("gemini: send request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield(transport.Event{}, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, detail))
			return
		}

		finish := ""
		callIndex := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var chunk geminiChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield(transport.Event{}, fmt.Errorf("gemini: decode chunk: %w", err))
				return
			}
			if chunk.Error != nil {
				yield(transport.Event{}, fmt.Errorf("gemini: api error %d: %s",
					chunk.Error.Code, chunk.Error.Message))
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			candidate := chunk.Candidates[0]
			if candidate.FinishReason != "" {
				finish = candidate.FinishReason
			}

			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					ev := transport.Event{Kind: transport.KindTextDelta, Text: part.Text}
					if !yield(ev, nil) {
						return
					}
				}
				if part.FunctionCall == nil {
					continue
				}
				// Function calls arrive whole; the API assigns no call
				// id, so one is synthesized per slot.
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					yield(transport.Event{}, fmt.Errorf("gemini: encode call args: %w", err))
					return
				}
				ev := transport.Event{
					Kind: transport.KindToolCallDelta,
					ToolCall: &transport.ToolCallDelta{
						Index:          callIndex,
						ID:             fmt.Sprintf("call_%d", callIndex),
						Name:           part.FunctionCall.Name,
						ArgumentsDelta: string(args),
					},
				}
				callIndex++
				if !yield(ev, nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield(transport.Event{}, fmt.Errorf("gemini: read stream: %w", err))
			return
		}

		kind := transport.KindCompleted
		if finish == "MAX_TOKENS" {
			kind = transport.KindIncomplete
		}
		yield(transport.Event{Kind: kind}, nil)
	}
}

func buildRequest(history []*message.Message, tools []map[string]any, opts transport.Options) geminiRequest {
	req := geminiRequest{}

	var system []string
	for _, msg := range history {
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, msg.Text())
		case message.RoleUser:
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Text()}},
			})
		case message.RoleAssistant:
			content := geminiContent{Role: "model"}
			if text := msg.Text(); text != "" {
				content.Parts = append(content.Parts, geminiPart{Text: text})
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				content.Parts = append(content.Parts, geminiPart{
					FunctionCall: &functionCall{Name: tc.Name, Args: args},
				})
			}
			if len(content.Parts) > 0 {
				req.Contents = append(req.Contents, content)
			}
		case message.RoleTool:
			req.Contents = append(req.Contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{
					FunctionResponse: &functionResp{
						Name:     msg.ToolName,
						Response: map[string]any{"output": msg.Text()},
					},
				}},
			})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: strings.Join(system, "\n")}},
		}
	}

	cfg := &generationConfig{
		MaxOutputTokens: opts.MaxTokens,
		Temperature:     opts.Temperature,
		TopP:            opts.TopP,
		StopSequences:   opts.StopSequences,
	}
	if opts.JSONResponse {
		cfg.ResponseMimeType = "application/json"
	}
	req.GenerationConfig = cfg

	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		decl := functionDeclaration{}
		decl.Name, _ = fn["name"].(string)
		decl.Description, _ = fn["description"].(string)
		decl.Parameters, _ = fn["parameters"].(map[string]any)
		if len(req.Tools) == 0 {
			req.Tools = []geminiTools{{}}
		}
		req.Tools[0].FunctionDeclarations = append(req.Tools[0].FunctionDeclarations, decl)
	}
	return req
}
