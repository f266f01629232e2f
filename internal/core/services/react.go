package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// ObservationStop is the stop sequence bound to the reasoning model so that
// it yields control before inventing a tool result.
const ObservationStop = "\nObservation:"

const finalAnswerMarker = "Final Answer:"

var (
	actionPattern = regexp.MustCompile(`(?s)Action\s*\d*\s*:(.*?)\n*\s*Action\s*\d*\s*Input\s*\d*\s*:\s*(.*)`)
	actionOnly    = regexp.MustCompile(`(?s)Action\s*\d*\s*:(.*)`)
	thoughtPrefix = regexp.MustCompile(`(?i)^\s*thought\s*:\s*`)
)

// StepKind distinguishes acting from finishing.
type StepKind int

// Step kinds.
const (
	StepAction StepKind = iota
	StepFinish
)

// Step is one parsed reasoning step.
type Step struct {
	Kind StepKind

	// Thought is the reasoning text preceding the action or answer.
	Thought string

	// Tool is the resolved tool. ToolNone when ToolName is not recognised.
	Tool domain.ToolKind

	// ToolName is the raw action name emitted by the model.
	ToolName string

	// Input is the action input.
	Input string

	// Answer is the final answer text.
	Answer string
}

// ParseStep parses model output in the Thought / Action / Action Input or
// Final Answer format. Text that fits neither form yields a
// *domain.ReasoningParseError.
func ParseStep(text string) (Step, error) {
	text = cutObservation(text)
	action := actionPattern.FindStringSubmatchIndex(text)
	finalAt := strings.Index(text, finalAnswerMarker)

	if finalAt >= 0 {
		if action != nil && action[0] < finalAt {
			return Step{}, &domain.ReasoningParseError{
				Text:   text,
				Reason: "found both an Action and a Final Answer",
			}
		}
		answer := strings.TrimSpace(text[finalAt+len(finalAnswerMarker):])
		if answer == "" {
			return Step{}, &domain.ReasoningParseError{Text: text, Reason: "empty Final Answer"}
		}
		return Step{
			Kind:    StepFinish,
			Thought: cleanThought(text[:finalAt]),
			Answer:  answer,
		}, nil
	}

	if action == nil {
		reason := "missing 'Action:' after 'Thought:'"
		if actionOnly.MatchString(text) {
			reason = "missing 'Action Input:' after 'Action:'"
		}
		return Step{}, &domain.ReasoningParseError{Text: text, Reason: reason}
	}

	name := cleanToolName(text[action[2]:action[3]])
	if name == "" {
		return Step{}, &domain.ReasoningParseError{Text: text, Reason: "empty Action"}
	}
	kind, _ := domain.ParseToolKind(name)

	return Step{
		Kind:     StepAction,
		Thought:  cleanThought(text[:action[0]]),
		Tool:     kind,
		ToolName: name,
		Input:    cleanInput(text[action[4]:action[5]]),
	}, nil
}

// cutObservation drops anything from a hallucinated observation onwards,
// for providers that ignore stop sequences.
func cutObservation(text string) string {
	if i := strings.Index(text, ObservationStop); i >= 0 {
		return text[:i]
	}
	return text
}

func cleanThought(s string) string {
	return strings.TrimSpace(thoughtPrefix.ReplaceAllString(strings.TrimSpace(s), ""))
}

func cleanToolName(s string) string {
	return strings.Trim(strings.TrimSpace(s), "`'\"[]*")
}

func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
