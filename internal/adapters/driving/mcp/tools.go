package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// defaultRetrieveK is used when the retrieve tool is called without k.
const defaultRetrieveK = domain.DefaultRetrievalK

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query     string `json:"query" jsonschema:"the question to answer"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit to start a new one"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	SessionID string            `json:"session_id"`
	Answer    string            `json:"answer"`
	Intent    string            `json:"intent"`
	Sources   []domain.Citation `json:"sources"`
	Trace     []TraceOutput     `json:"trace"`
}

// TraceOutput is one reasoning step of an answer.
type TraceOutput struct {
	Type      string `json:"type"`
	Thought   string `json:"thought,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Input     string `json:"input,omitempty"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"text to find relevant document chunks for"`
	K     int    `json:"k,omitempty" jsonschema:"number of content chunks to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ID       string `json:"id"`
	File     string `json:"file"`
	Location string `json:"location"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the conversation to read"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	SessionID string       `json:"session_id"`
	Turns     []TurnOutput `json:"turns"`
}

// TurnOutput represents one persisted conversation turn.
type TurnOutput struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Timestamp string            `json:"timestamp"`
	Intent    string            `json:"intent,omitempty"`
	Sources   []domain.Citation `json:"sources,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the company documents or the web, with cited sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the document chunks most relevant to a query, schema chunks first",
	}, s.handleRetrieve)

	if s.ports.Conversations != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "history",
			Description: "Read every turn of a conversation session",
		}, s.handleHistory)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AskOutput{}, errors.New("query is required")
	}

	resp, err := s.ports.Agent.HandleQuery(ctx, input.Query, input.SessionID)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		SessionID: resp.SessionID,
		Answer:    resp.Answer,
		Intent:    string(resp.Intent),
		Sources:   resp.Citations,
		Trace:     make([]TraceOutput, len(resp.Trace)),
	}
	if output.Sources == nil {
		output.Sources = []domain.Citation{}
	}
	for i, ev := range resp.Trace {
		output.Trace[i] = TraceOutput{
			Type:      string(ev.Type),
			Thought:   ev.Thought,
			Tool:      ev.Tool,
			Input:     ev.Input,
			Output:    ev.Output,
			Error:     ev.Error,
			Timestamp: ev.Timestamp.Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	chunks, err := s.ports.Retrieval.Query(ctx, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i, c := range chunks {
		output.Chunks[i] = ChunkOutput{
			ID:       c.ID,
			File:     c.Provenance.FileName(),
			Location: c.Provenance.Location.String(),
			Kind:     string(c.Provenance.Kind),
			Content:  c.Content,
		}
	}

	return nil, output, nil
}

// handleHistory handles the history tool invocation.
func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	turns, err := s.ports.Conversations.History(ctx, input.SessionID)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{SessionID: input.SessionID, Turns: toTurnOutputs(turns)}, nil
}

func toTurnOutputs(turns []domain.Turn) []TurnOutput {
	out := make([]TurnOutput, len(turns))
	for i, t := range turns {
		out[i] = TurnOutput{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.Timestamp.Format(time.RFC3339),
			Sources:   t.Citations,
		}
		if t.Metadata != nil {
			out[i].Intent = string(t.Metadata.Intent)
		}
	}
	return out
}
