package agent

// State is the terminal state of one orchestrator run.
type State int

const (
	// StateAnswered means the model produced a final answer.
	StateAnswered State = iota + 1

	// StateFailed means two consecutive step failures; the answer is a
	// generic apology.
	StateFailed

	// StateBudgetExhausted means the model-call budget ran out; the answer
	// is synthesized from gathered observations. A defined outcome, not an
	// error.
	StateBudgetExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnswered:
		return "answered"
	case StateFailed:
		return "failed"
	case StateBudgetExhausted:
		return "budget_exhausted"
	default:
		return "unknown"
	}
}

// AgentStep records one loop iteration for the verbose trace. Recording
// never alters control flow or budget accounting.
type AgentStep struct {
	// Action is "tool_call" or "answer".
	Action string

	// ToolName and Arguments are set for tool-call steps.
	ToolName  string
	Arguments string

	// Observation is the serialized tool result, or the final answer text
	// for answer steps.
	Observation string

	// Err is the failure description when the step failed.
	Err string
}
