package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
)

func TestMain(m *testing.M) {
	composeApp = func(_ context.Context, _ string) (func(), error) {
		return func() {}, nil
	}
	os.Exit(m.Run())
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report   *driving.IngestReport
	err      error
	paths    []string
	resetErr error
	resets   int
}

func (m *mockIngestService) Ingest(_ context.Context, paths ...string) (*driving.IngestReport, error) {
	m.paths = paths
	return m.report, m.err
}

func (m *mockIngestService) Reset(_ context.Context) error {
	m.resets++
	return m.resetErr
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct{}

func (m *mockRetrievalService) Query(_ context.Context, _ string, _ int) ([]domain.Chunk, error) {
	return []domain.Chunk{}, nil
}

func (m *mockRetrievalService) Reload(_ context.Context) error {
	return nil
}

// mockAgentService is a mock implementation of driving.AgentService.
// It answers every query with "answer: <query>" in session "s-1".
type mockAgentService struct {
	err       error
	citations []domain.Citation
	trace     []domain.TraceEvent

	queries  []string
	sessions []string
}

func (m *mockAgentService) HandleQuery(_ context.Context, query, sessionID string) (*domain.AgentResponse, error) {
	m.queries = append(m.queries, query)
	m.sessions = append(m.sessions, sessionID)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AgentResponse{
		SessionID: "s-1",
		Answer:    "answer: " + query,
		Intent:    domain.IntentPolicyLookup,
		Citations: m.citations,
		Trace:     m.trace,
	}, nil
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	turns    map[string][]domain.Turn
	sessions []domain.Session
	err      error
	deleted  []string
}

func (m *mockConversationService) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	return m.turns[sessionID], m.err
}

func (m *mockConversationService) Sessions(_ context.Context) ([]domain.Session, error) {
	return m.sessions, m.err
}

func (m *mockConversationService) Delete(_ context.Context, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	return m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.Settings
	err      error

	llmProvider   domain.AIProvider
	llmModel      string
	embedProvider domain.AIProvider
	embedModel    string
	embedBaseURL  string
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		s := domain.DefaultSettings()
		m.settings = &s
	}
	return m.settings, nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model string) error {
	m.llmProvider = provider
	m.llmModel = model
	return m.err
}

func (m *mockSettingsService) SetEmbedding(provider domain.AIProvider, model, baseURL string) error {
	m.embedProvider = provider
	m.embedModel = model
	m.embedBaseURL = baseURL
	return m.err
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ingest        *mockIngestService
	agent         *mockAgentService
	conversations *mockConversationService
	settings      *mockSettingsService
}

// setupTestServices installs fresh mocks and returns them with a cleanup func.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingest:        &mockIngestService{report: &driving.IngestReport{}},
		agent:         &mockAgentService{},
		conversations: &mockConversationService{turns: map[string][]domain.Turn{}},
		settings:      &mockSettingsService{},
	}
	ingestService = ts.ingest
	retrievalService = &mockRetrievalService{}
	agentService = ts.agent
	conversationService = ts.conversations
	settingsService = ts.settings

	return ts, func() {
		ingestService = nil
		retrievalService = nil
		agentService = nil
		conversationService = nil
		settingsService = nil
	}
}

// resetFlags restores command flags that persist between executions.
func resetFlags() {
	askSession, askJSON, askTrace = "", false, false
	chatSession, chatTrace = "", false
	historyDelete, historyJSON = false, false
	settingsEmbeddingBaseURL = ""
	mcpHTTPAddr = ""
}

// execute runs the root command with args and stdin, returning stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetErr(io.Discard)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
