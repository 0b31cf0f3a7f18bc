package llm

import (
	"encoding/json"
	"strings"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// ToolDefinition declares a function the model may call. Parameters is a
// JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a structured invocation returned by the model. Arguments are
// passed through as the raw JSON object the model produced.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int
	// Temperature is sent as given, zero included. Nil leaves the
	// provider's default.
	Temperature *float64
	JSONMode    bool
	Tools       []ToolDefinition
	// ToolChoice forces a call to the named tool when set. Providers that
	// cannot force a choice treat it as a hint.
	ToolChoice string
}

// Temperature returns a pointer for CompletionRequest.Temperature.
func Temperature(t float64) *float64 { return &t }

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// FindToolCall returns the first call to the named tool.
func (r *CompletionResponse) FindToolCall(name string) (ToolCall, bool) {
	if r == nil {
		return ToolCall{}, false
	}
	for _, tc := range r.ToolCalls {
		if tc.Name == name {
			return tc, true
		}
	}
	return ToolCall{}, false
}

// ToolArguments returns the argument object of the named tool call. Models
// that answer in plain text with a JSON object are accepted too, as are
// arguments encoded as a JSON string.
func (r *CompletionResponse) ToolArguments(name string) (json.RawMessage, bool) {
	if call, ok := r.FindToolCall(name); ok {
		return unwrapArguments(call.Arguments)
	}
	if r != nil && len(r.ToolCalls) == 0 {
		return unwrapArguments(json.RawMessage(r.Content))
	}
	return nil, false
}

func unwrapArguments(raw json.RawMessage) (json.RawMessage, bool) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, false
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, false
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
	}
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}
