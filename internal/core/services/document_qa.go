package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure DocumentQA implements the tool interface.
var _ driven.Tool = (*DocumentQA)(nil)

// NoDocumentAnswer is returned when retrieval finds nothing to ground on.
const NoDocumentAnswer = "I couldn't find this information in the company documents."

// DocumentQA answers a question from retrieved document chunks and cites them.
type DocumentQA struct {
	retrieval driving.RetrievalService
	model     driven.ChatModel
	prompts   driven.PromptStore
	k         int
}

// NewDocumentQA creates the document search tool.
func NewDocumentQA(
	retrieval driving.RetrievalService,
	model driven.ChatModel,
	prompts driven.PromptStore,
	k int,
) *DocumentQA {
	return &DocumentQA{retrieval: retrieval, model: model, prompts: prompts, k: k}
}

type documentQAPromptData struct {
	Context string
	History string
	Query   string
}

// Invoke retrieves chunks for input and asks the model for a grounded answer.
func (d *DocumentQA) Invoke(ctx context.Context, input string, history []domain.Turn) (domain.ToolResult, error) {
	chunks, err := d.retrieval.Query(ctx, input, d.k)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(chunks) == 0 {
		logger.Debug("Document QA: no chunks for %q", input)
		return domain.ToolResult{Answer: NoDocumentAnswer}, nil
	}

	prompt, err := renderPrompt(d.prompts, driven.PromptDocumentQA, documentQAPromptData{
		Context: formatContext(chunks),
		History: formatHistory(history),
		Query:   input,
	})
	if err != nil {
		return domain.ToolResult{}, err
	}

	answer, err := d.model.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{})
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("answer: %w", err)
	}

	return domain.ToolResult{
		Answer:    strings.TrimSpace(answer),
		Citations: chunkCitations(chunks),
	}, nil
}

// formatContext renders chunks with their provenance for the answer prompt.
func formatContext(chunks []domain.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] source: %s | location: %s | kind: %s\n%s",
			i+1, c.Provenance.FileName(), c.Provenance.Location, c.Provenance.Kind, c.Content)
	}
	return b.String()
}

// chunkCitations builds one citation per distinct file and location.
func chunkCitations(chunks []domain.Chunk) []domain.Citation {
	seen := make(map[string]bool, len(chunks))
	out := make([]domain.Citation, 0, len(chunks))
	for _, c := range chunks {
		cit := domain.DocumentCitation(c)
		key := cit.File + "\x00" + cit.Location
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cit)
	}
	return out
}
