package llm

import "encoding/json"

// Message is one entry in a conversation. Tool-call requests live on
// assistant messages; tool results reference the originating call via
// ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Query extracts the "query" argument from the call's JSON arguments.
// When the arguments are not valid JSON, the raw string is returned so
// a sloppy model still reaches the tool. Valid JSON without a query
// yields the empty string; the literal argument object is never a
// useful search term.
func (f FunctionCall) Query() string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(f.Arguments), &args); err != nil {
		return f.Arguments
	}
	return args.Query
}

// ToolSpec describes a callable tool to the model. Every tool in this
// service takes a single free-text query argument.
type ToolSpec struct {
	Name        string
	Description string
}

// MarshalJSON emits the OpenAI function-tool wire shape.
func (t ToolSpec) MarshalJSON() ([]byte, error) {
	type property struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	return json.Marshal(map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]property{
					"query": {Type: "string", Description: "The search query"},
				},
				"required": []string{"query"},
			},
		},
	})
}

// Decision is a single reasoning step's outcome: either final content,
// or one or more tool calls to execute before thinking again.
type Decision struct {
	Content   string
	ToolCalls []ToolCall
}

// IsFinal reports whether the decision carries no tool calls.
func (d Decision) IsFinal() bool {
	return len(d.ToolCalls) == 0
}
