package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/chatloop/message"
)

// Parameter defines a tool parameter
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, boolean, object, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Tool represents a callable tool/function. The handler receives the
// call arguments encoded as JSON bytes and returns the result as
// content chunks.
type Tool struct {
	Name        string                                                 `json:"name"`
	Description string                                                 `json:"description"`
	Parameters  []Parameter                                            `json:"parameters"`
	Handler     func(context.Context, []byte) ([]message.Chunk, error) `json:"-"`
}

// Invoke runs the tool with the encoded arguments.
func (t *Tool) Invoke(ctx context.Context, input []byte) ([]message.Chunk, error) {
	if t.Handler == nil {
		return nil, fmt.Errorf("tool %s has no handler", t.Name)
	}
	return t.Handler(ctx, input)
}

// Schema returns the tool definition in JSON schema format for LLM backends.
func (t *Tool) Schema() map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, param := range t.Parameters {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// NotFoundError is returned when a tool name resolves to nothing.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Name)
}

// Registry manages a collection of tools resolved by unique name.
// All operations are thread-safe using RWMutex protection.
type Registry struct {
	mu    sync.RWMutex // Protects tools map
	tools map[string]*Tool
	names []string // registration order, for stable schema output
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry. Names must be unique.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.names = append(r.names, tool.Name)
	return nil
}

// Upsert adds or replaces a tool definition in the registry.
func (r *Registry) Upsert(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; !exists {
		r.names = append(r.names, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Resolve retrieves a tool by exact name.
func (r *Registry) Resolve(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return tool, nil
}

// List returns all registered tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, name := range r.names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Schemas returns all tools in JSON schema format, in registration order.
func (r *Registry) Schemas() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.names {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}
