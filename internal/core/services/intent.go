package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// Keyword sets for the deterministic fallback. Single words match as word
// prefixes, phrases as substrings.
var (
	policyKeywords = []string{
		"leave", "policy", "policies", "vacation", "sick", "approval",
		"hr", "benefit", "payroll", "holiday", "pto",
	}
	factKeywords = []string{"weather", "who is", "what is", "capital", "population"}
)

// IntentClassifier labels a query with one of the closed set of intents.
// It asks the language model first and falls back to keyword matching when
// no model is configured or the call fails. It always yields a label.
type IntentClassifier struct {
	model   driven.ChatModel
	prompts driven.PromptStore
}

// NewIntentClassifier creates a classifier. model may be nil, in which case
// only the keyword fallback is used.
func NewIntentClassifier(model driven.ChatModel, prompts driven.PromptStore) *IntentClassifier {
	return &IntentClassifier{model: model, prompts: prompts}
}

type intentPromptData struct {
	History string
	Query   string
}

// Classify returns the intent of query in the context of history.
func (c *IntentClassifier) Classify(ctx context.Context, query string, history []domain.Turn) domain.Intent {
	if c.model == nil || c.prompts == nil {
		intent := HeuristicIntent(query)
		logger.Debug("Intent (keywords, no model): %s", intent)
		return intent
	}

	prompt, err := renderPrompt(c.prompts, driven.PromptIntent, intentPromptData{
		History: formatHistory(history),
		Query:   query,
	})
	if err != nil {
		logger.Warn("Intent prompt unavailable, using keywords: %v", err)
		return HeuristicIntent(query)
	}

	out, err := c.model.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{MaxTokens: 16})
	if err != nil {
		intent := HeuristicIntent(query)
		logger.Warn("Intent classification failed, using keywords (%s): %v", intent, err)
		return intent
	}

	intent := domain.ParseIntent(out)
	logger.Debug("Intent (model): %q -> %s", out, intent)
	return intent
}

// HeuristicIntent classifies by keywords, testing policy terms before fact terms.
func HeuristicIntent(query string) domain.Intent {
	q := strings.ToLower(query)
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	switch {
	case matchesAny(q, words, policyKeywords):
		return domain.IntentPolicyLookup
	case matchesAny(q, words, factKeywords):
		return domain.IntentGeneralFact
	default:
		return domain.IntentSmallTalk
	}
}

func matchesAny(q string, words, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(q, k) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, k) {
				return true
			}
		}
	}
	return false
}
