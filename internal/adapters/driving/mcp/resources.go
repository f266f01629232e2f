package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for Ray resources.
	uriScheme = "ray://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Conversations == nil {
		return
	}

	// Static resource for listing sessions.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sessions",
		Name:        "sessions",
		Description: "Conversation sessions, most recent first",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)

	// Template for a session transcript.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{sessionId}",
		Name:        "session-history",
		Description: "Every turn of a conversation session",
		MIMEType:    "application/json",
	}, s.handleSessionResource)
}

// handleSessionsResource returns a list of all sessions.
func (s *Server) handleSessionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessions, err := s.ports.Conversations.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	type sessionInfo struct {
		ID        string `json:"id"`
		URI       string `json:"uri"`
		Turns     int    `json:"turns"`
		UpdatedAt string `json:"updated_at"`
	}

	infos := make([]sessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = sessionInfo{
			ID:        sess.ID,
			URI:       uriScheme + "sessions/" + sess.ID,
			Turns:     sess.Turns,
			UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleSessionResource returns the transcript of one session.
func (s *Server) handleSessionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract sessionId from URI: ray://sessions/{sessionId}
	sessionID := extractSessionID(req.Params.URI)
	if sessionID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	turns, err := s.ports.Conversations.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if len(turns) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return jsonResource(req.Params.URI, HistoryOutput{SessionID: sessionID, Turns: toTurnOutputs(turns)})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSessionID extracts the session ID from a URI like ray://sessions/{sessionId}.
func extractSessionID(uri string) string {
	const prefix = uriScheme + "sessions/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
