package ai

// MessageRole identifies the author of a chat message sent to the model.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is a single entry in the chat transcript sent to the model.
type Message struct {
	Role    MessageRole
	Content string

	// ToolCalls is set on assistant messages that requested tool
	// invocations, so the transcript replayed to the model is complete.
	ToolCalls []ToolCall

	// ToolCallID and ToolName are set on tool messages carrying a tool
	// result back to the model.
	ToolCallID string
	ToolName   string
}

// ToolSpec describes a tool the model may invoke. Parameters is a JSON
// Schema object in the shape OpenAI-compatible APIs expect.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a tool invocation requested by the model.
// Arguments is the raw JSON string as produced by the model; callers are
// responsible for decoding and validating it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ModelRequest is a single chat-completion request.
type ModelRequest struct {
	Messages []Message
	Tools    []ToolSpec
}

// ModelResponse is the model's reply: either assistant text, one or more
// tool calls, or both.
type ModelResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model requested any tool invocations.
func (r *ModelResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
