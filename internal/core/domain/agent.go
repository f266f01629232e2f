package domain

import "time"

// ToolKind is the closed set of tools the agent can act with.
type ToolKind int

// Available tools.
const (
	// ToolNone marks a step that invokes no tool.
	ToolNone ToolKind = iota

	// ToolDocumentSearch answers from the private document corpus.
	ToolDocumentSearch

	// ToolWebSearch answers from a public web search.
	ToolWebSearch
)

// Tool names as they appear in the reasoning prompt.
const (
	ToolNameDocumentSearch = "document_search"
	ToolNameWebSearch      = "web_search"
)

// String returns the name the reasoning model uses for the tool.
func (k ToolKind) String() string {
	switch k {
	case ToolDocumentSearch:
		return ToolNameDocumentSearch
	case ToolWebSearch:
		return ToolNameWebSearch
	default:
		return "none"
	}
}

// ParseToolKind resolves a tool name emitted by the model.
func ParseToolKind(name string) (ToolKind, bool) {
	switch name {
	case ToolNameDocumentSearch:
		return ToolDocumentSearch, true
	case ToolNameWebSearch:
		return ToolWebSearch, true
	default:
		return ToolNone, false
	}
}

// TraceEventType classifies a reasoning trace event.
type TraceEventType string

// Trace event types.
const (
	TraceThought   TraceEventType = "thought"
	TraceToolStart TraceEventType = "tool_start"
	TraceToolEnd   TraceEventType = "tool_end"
	TraceToolError TraceEventType = "tool_error"
	TraceFinish    TraceEventType = "finish"
)

// TraceOutputLimit caps how much tool output is copied into a trace event.
const TraceOutputLimit = 200

// TraceEvent is one entry in the reasoning log of a turn.
type TraceEvent struct {
	Type      TraceEventType `json:"type"`
	Thought   string         `json:"thought,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Input     string         `json:"input,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToolResult is what a tool hands back to the reasoning loop.
type ToolResult struct {
	Answer    string
	Citations []Citation
}
