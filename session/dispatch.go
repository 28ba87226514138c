package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/chatloop/message"
	"github.com/sweetpotato0/chatloop/pkg/telemetry"
)

// execute resolves and runs one tool call, returning its output message.
// An unknown tool name or a handler failure aborts the round.
func (s *Session[T]) execute(ctx context.Context, call message.ToolCall) (msg *message.Message, err error) {
	ctx, span := s.tracer.Start(ctx, "session.tool")
	span.SetAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)
	defer func() { telemetry.End(span, err) }()

	t, err := s.tools.Resolve(call.Name)
	if err != nil {
		return nil, err
	}

	input, err := json.Marshal(call.Args)
	if err != nil {
		return nil, &ToolExecutionError{Tool: call.Name,
			Err: fmt.Errorf("encode arguments: %w", err)}
	}

	chunks, err := t.Invoke(ctx, input)
	if err != nil {
		return nil, &ToolExecutionError{Tool: call.Name, Err: err}
	}
	s.logger.Debug("tool executed", "tool", call.Name, "chunks", len(chunks))
	return message.NewToolOutput(call.ID, call.Name, chunks), nil
}
