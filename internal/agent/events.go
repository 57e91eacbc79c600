package agent

// EventType identifies an agent run event.
type EventType string

const (
	EventRunStarted EventType = "run.started"
	EventText       EventType = "text"
	EventToolCall   EventType = "tool.call"
	EventToolResult EventType = "tool.result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is emitted during an agent run. Consumers fold the stream to
// observe progress; the final event is always done or error.
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	SessionKey string    `json:"session_key"`
	Content    string    `json:"content,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	ToolID     string    `json:"tool_id,omitempty"`
	IsError    bool      `json:"is_error,omitempty"`
	Err        error     `json:"-"`
}
