package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ray/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ray/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/normalisers"
	"github.com/custodia-labs/ray/internal/postprocessors/chunker"
)

// staffLLM answers each prompt by recognising which template produced it.
// intentErr, when set, fails the intent classification call.
func staffLLM(intentErr error) *mockChatModel {
	return &mockChatModel{name: "scripted", reply: func(prompt string, _ driven.ChatOptions) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "You are the intent classifier"):
			if intentErr != nil {
				return "", intentErr
			}
			return "POLICY_LOOKUP", nil
		case strings.HasPrefix(prompt, "You are Ray, a retrieval assistant"):
			if strings.Contains(prompt, "name: Alice\ndepartment: Engineering") {
				return "Alice is in the Engineering department (staff.csv, Row 0).", nil
			}
			return NoDocumentAnswer, nil
		case strings.HasPrefix(prompt, "You are Ray, a conversational assistant"):
			if strings.Contains(prompt, "Observation: Alice is in the Engineering department") {
				return " Do I need to use a tool? No\nFinal Answer: Alice works in Engineering (staff.csv, Row 0).", nil
			}
			return " Do I need to use a tool? Yes\nAction: document_search\nAction Input: What department is Alice in?", nil
		default:
			return "", assert.AnError
		}
	}}
}

// staffPipeline ingests a small staff spreadsheet and wires an agent over it.
func staffPipeline(t *testing.T, llm *mockChatModel) (*AgentOrchestrator, *ConversationMemory) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "docs", "staff.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0755))
	require.NoError(t, os.WriteFile(csvPath, []byte("name,department\nAlice,Engineering\nBob,Sales\nCarol,Finance\n"), 0644))

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	require.NoError(t, err)

	manager := NewIndexManager(flat.NewStore(filepath.Join(dir, "index")), newMockEmbedder())
	retrieval := NewRetrievalEngine(manager, 3)
	ingest := NewIngestService(normalisers.NewDefaultRegistry(), chunker.New(), manager, retrieval)

	report, err := ingest.Ingest(ctx, filepath.Join(dir, "docs"))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)

	router := NewLLMRouter(time.Second, llm)
	mem := NewConversationMemory(memory.NewTurnStore(), 5)
	agent := NewAgentOrchestrator(
		NewIntentClassifier(router, prompts),
		router,
		mem,
		prompts,
		NewDocumentQA(retrieval, router, prompts, 3),
		nil,
		0,
	)
	return agent, mem
}

func rowCitation(citations []domain.Citation, location string) *domain.Citation {
	for i := range citations {
		if citations[i].Location == location {
			return &citations[i]
		}
	}
	return nil
}

func TestEndToEnd_SpreadsheetQuestion(t *testing.T) {
	ctx := context.Background()
	agent, mem := staffPipeline(t, staffLLM(nil))

	resp, err := agent.HandleQuery(ctx, "What department is Alice in?", "")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentPolicyLookup, resp.Intent)
	assert.Equal(t, "Alice works in Engineering (staff.csv, Row 0).", resp.Answer)

	row := rowCitation(resp.Citations, "Row 0")
	require.NotNil(t, row, "citations: %+v", resp.Citations)
	assert.Equal(t, "staff.csv", row.File)
	assert.Contains(t, row.Snippet, "name: Alice")

	for _, ev := range resp.Trace {
		assert.NotEqual(t, domain.ToolNameWebSearch, ev.Tool)
	}

	history, err := mem.History(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "What department is Alice in?", history[0].Text)
	assert.Equal(t, resp.Answer, history[1].Text)
	assert.Equal(t, resp.Citations, history[1].Citations)
}

func TestEndToEnd_ClassifierDownStillGrounds(t *testing.T) {
	agent, _ := staffPipeline(t, staffLLM(errors.New("intent model unavailable")))

	resp, err := agent.HandleQuery(context.Background(), "What department is Alice in?", "")
	require.NoError(t, err)

	// Keyword fallback has no policy term here.
	assert.Equal(t, domain.IntentSmallTalk, resp.Intent)
	assert.Equal(t, "Alice works in Engineering (staff.csv, Row 0).", resp.Answer)

	row := rowCitation(resp.Citations, "Row 0")
	require.NotNil(t, row, "citations: %+v", resp.Citations)
	assert.Equal(t, "staff.csv", row.File)
	for _, ev := range resp.Trace {
		assert.Empty(t, ev.Error)
	}
}
