package mcp

import (
	"context"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// mockAgentService is a mock implementation of driving.AgentService.
type mockAgentService struct {
	response *domain.AgentResponse
	err      error

	query     string
	sessionID string
}

func (m *mockAgentService) HandleQuery(_ context.Context, query, sessionID string) (*domain.AgentResponse, error) {
	m.query = query
	m.sessionID = sessionID
	return m.response, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks []domain.Chunk
	err    error
	k      int
}

func (m *mockRetrievalService) Query(_ context.Context, _ string, k int) ([]domain.Chunk, error) {
	m.k = k
	return m.chunks, m.err
}

func (m *mockRetrievalService) Reload(_ context.Context) error {
	return nil
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	turns    map[string][]domain.Turn
	sessions []domain.Session
	err      error
}

func (m *mockConversationService) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	return m.turns[sessionID], m.err
}

func (m *mockConversationService) Sessions(_ context.Context) ([]domain.Session, error) {
	return m.sessions, m.err
}

func (m *mockConversationService) Delete(_ context.Context, _ string) error {
	return m.err
}
