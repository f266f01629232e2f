package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/core/ports/driving"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure AgentOrchestrator implements the interface.
var _ driving.AgentService = (*AgentOrchestrator)(nil)

// Reasoning limits.
const (
	// MaxParseRetries is how many malformed outputs are fed back before
	// the loop stops and asks for a final answer.
	MaxParseRetries = 3

	forceFinalSuffix = "\n\nI now need to return a final answer based on the previous steps:"
	apologyPrefix    = "I apologize, but I encountered an error: "
)

// Observations fed back when a step breaks a routing rule.
const (
	refuseWebForPolicy     = "web_search is not allowed for company policy questions. Use document_search instead."
	refuseUngroundedPolicy = "You must search the company documents with document_search before answering a policy question."
	refuseUngroundedFact   = "Use web_search to find a source before answering a factual question."
)

// AgentOrchestrator runs one conversation turn: classify the intent, reason
// with tools until a final answer, persist the exchange and respond.
//
// It holds no per-turn state, so turns for different sessions may run
// concurrently.
type AgentOrchestrator struct {
	classifier *IntentClassifier
	router     *LLMRouter
	memory     *ConversationMemory
	prompts    driven.PromptStore
	documents  driven.Tool
	web        driven.Tool
	maxIter    int
	now        func() time.Time
}

// NewAgentOrchestrator creates the orchestrator. web may be nil, in which
// case web_search calls fail as tool errors.
func NewAgentOrchestrator(
	classifier *IntentClassifier,
	router *LLMRouter,
	memory *ConversationMemory,
	prompts driven.PromptStore,
	documents driven.Tool,
	web driven.Tool,
	maxIterations int,
) *AgentOrchestrator {
	if maxIterations <= 0 {
		maxIterations = domain.DefaultMaxIterations
	}
	return &AgentOrchestrator{
		classifier: classifier,
		router:     router.Bind(driven.ChatOptions{StopWords: []string{ObservationStop}}),
		memory:     memory,
		prompts:    prompts,
		documents:  documents,
		web:        web,
		maxIter:    maxIterations,
		now:        time.Now,
	}
}

// turnState is the mutable state of a single turn.
type turnState struct {
	query      string
	intent     domain.Intent
	history    []domain.Turn
	scratchpad strings.Builder
	trace      []domain.TraceEvent
	citations  []domain.Citation
	cited      map[string]bool

	searchedDocs    bool
	usedTool        bool
	factRefused     bool
	parseFailures   int
	lastObservation string
	lastRaw         string
}

type agentPromptData struct {
	Tools      string
	ToolNames  string
	History    string
	Intent     domain.Intent
	Query      string
	Scratchpad string
}

// HandleQuery answers query within a session. An empty sessionID starts a
// new session. Failures inside the turn are answered with an apology and
// still persisted; only invalid input is returned as an error.
func (a *AgentOrchestrator) HandleQuery(ctx context.Context, query, sessionID string) (*domain.AgentResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	received := a.now()

	logger.Section("Agent Turn")
	logger.Debug("Session %s, query %q", sessionID, query)

	history, err := a.memory.Window(ctx, sessionID)
	if err != nil {
		logger.Warn("Conversation window unavailable: %v", err)
	}

	st := &turnState{
		query:   query,
		history: history,
		cited:   make(map[string]bool),
	}
	st.intent = a.classifier.Classify(ctx, query, history)
	logger.Info("Intent: %s", st.intent)

	answer, err := a.reason(ctx, st)
	citations := st.citations
	if err != nil {
		logger.Error("Agent turn failed: %v", err)
		answer = apologyPrefix + err.Error()
		citations = []domain.Citation{}
	}
	if citations == nil {
		citations = []domain.Citation{}
	}

	user := domain.Turn{Role: domain.RoleUser, Text: query, Timestamp: received}
	assistant := domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      answer,
		Timestamp: a.now(),
		Citations: citations,
		Metadata:  &domain.TurnMetadata{Intent: st.intent, Trace: st.trace},
	}
	// Persist even if the caller has gone away.
	if err := a.memory.SaveExchange(context.WithoutCancel(ctx), sessionID, user, assistant); err != nil {
		logger.Error("Persisting turn failed: %v", err)
	}

	return &domain.AgentResponse{
		SessionID: sessionID,
		Answer:    answer,
		Intent:    st.intent,
		Citations: citations,
		Trace:     st.trace,
	}, nil
}

// reason runs the think/act loop until a final answer or the iteration cap.
func (a *AgentOrchestrator) reason(ctx context.Context, st *turnState) (string, error) {
	for iter := 0; iter < a.maxIter; iter++ {
		out, err := a.think(ctx, st, "")
		if err != nil {
			return "", err
		}

		step, err := ParseStep(out)
		if err != nil {
			st.parseFailures++
			a.record(st, domain.TraceEvent{Type: domain.TraceThought, Thought: strings.TrimSpace(out), Error: err.Error()})
			st.lastRaw = out
			if st.parseFailures > MaxParseRetries {
				logger.Warn("Reasoning output unparseable %d times, forcing a final answer", st.parseFailures)
				return a.forceFinal(ctx, st), nil
			}
			var pe *domain.ReasoningParseError
			reason := err.Error()
			if errors.As(err, &pe) {
				reason = pe.Reason
			}
			a.observe(st, out, "Invalid Format: "+reason+". Reply with Thought, Action and Action Input, or with Final Answer.")
			continue
		}

		if step.Thought != "" {
			a.record(st, domain.TraceEvent{Type: domain.TraceThought, Thought: step.Thought})
		}

		if step.Kind == StepFinish {
			if refusal := a.refuseFinish(st); refusal != "" {
				logger.Debug("Refused final answer: %s", refusal)
				a.record(st, domain.TraceEvent{Type: domain.TraceToolError, Error: refusal})
				a.observe(st, out, refusal)
				continue
			}
			a.record(st, domain.TraceEvent{Type: domain.TraceFinish, Output: domain.Truncate(step.Answer, domain.TraceOutputLimit)})
			return step.Answer, nil
		}

		if refusal := a.refuseAction(st, step); refusal != "" {
			logger.Debug("Refused %s: %s", step.ToolName, refusal)
			a.record(st, domain.TraceEvent{Type: domain.TraceToolError, Input: step.Input, Error: refusal})
			a.observe(st, out, refusal)
			continue
		}

		a.observe(st, out, a.act(ctx, st, step))
	}

	logger.Warn("Iteration limit (%d) reached, forcing a final answer", a.maxIter)
	return a.forceFinal(ctx, st), nil
}

// think renders the reasoning prompt and asks the router for the next step.
func (a *AgentOrchestrator) think(ctx context.Context, st *turnState, suffix string) (string, error) {
	prompt, err := renderPrompt(a.prompts, driven.PromptAgent, agentPromptData{
		Tools:      toolDescriptions,
		ToolNames:  domain.ToolNameDocumentSearch + ", " + domain.ToolNameWebSearch,
		History:    formatHistory(st.history),
		Intent:     st.intent,
		Query:      st.query,
		Scratchpad: st.scratchpad.String() + suffix,
	})
	if err != nil {
		return "", err
	}
	return a.router.Invoke(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

// act dispatches a tool call and returns the observation text.
func (a *AgentOrchestrator) act(ctx context.Context, st *turnState, step Step) string {
	var tool driven.Tool
	switch step.Tool {
	case domain.ToolDocumentSearch:
		tool = a.documents
	case domain.ToolWebSearch:
		tool = a.web
	default:
		msg := fmt.Sprintf("%s is not a valid tool, try one of [%s, %s].",
			step.ToolName, domain.ToolNameDocumentSearch, domain.ToolNameWebSearch)
		a.record(st, domain.TraceEvent{Type: domain.TraceToolError, Input: step.Input, Error: msg})
		return msg
	}

	name := step.Tool.String()
	a.record(st, domain.TraceEvent{Type: domain.TraceToolStart, Tool: name, Input: step.Input})
	st.usedTool = true
	if step.Tool == domain.ToolDocumentSearch {
		st.searchedDocs = true
	}

	var result domain.ToolResult
	var err error
	if tool == nil {
		err = errors.New("tool not configured")
	} else {
		result, err = tool.Invoke(ctx, step.Input, st.history)
	}
	if err != nil {
		terr := &domain.ToolError{Tool: name, Err: err}
		logger.Warn("Tool failed: %v", terr)
		a.record(st, domain.TraceEvent{Type: domain.TraceToolError, Tool: name, Input: step.Input, Error: terr.Error()})
		return "Tool error: " + terr.Error()
	}

	a.record(st, domain.TraceEvent{
		Type:   domain.TraceToolEnd,
		Tool:   name,
		Input:  step.Input,
		Output: domain.Truncate(result.Answer, domain.TraceOutputLimit),
	})
	for _, c := range result.Citations {
		key := string(c.Kind) + "\x00" + c.File + "\x00" + c.Location + "\x00" + c.URL
		if !st.cited[key] {
			st.cited[key] = true
			st.citations = append(st.citations, c)
		}
	}
	st.lastObservation = result.Answer
	return result.Answer
}

// refuseAction enforces the tool routing rules for the intent.
func (a *AgentOrchestrator) refuseAction(st *turnState, step Step) string {
	switch st.intent {
	case domain.IntentPolicyLookup:
		if step.Tool == domain.ToolWebSearch {
			return refuseWebForPolicy
		}
	}
	return ""
}

// refuseFinish enforces grounding before a final answer.
func (a *AgentOrchestrator) refuseFinish(st *turnState) string {
	switch st.intent {
	case domain.IntentPolicyLookup:
		if !st.searchedDocs {
			return refuseUngroundedPolicy
		}
	case domain.IntentGeneralFact:
		if !st.usedTool && !st.factRefused {
			st.factRefused = true
			return refuseUngroundedFact
		}
	}
	return ""
}

// forceFinal asks once more for an answer after the loop gives up. It falls
// back to the last unparseable output when parsing is what stopped the loop,
// and to the last observation otherwise.
func (a *AgentOrchestrator) forceFinal(ctx context.Context, st *turnState) string {
	out, err := a.think(ctx, st, forceFinalSuffix)
	if err == nil {
		step, perr := ParseStep(out)
		if perr == nil && step.Kind == StepFinish {
			a.record(st, domain.TraceEvent{Type: domain.TraceFinish, Output: domain.Truncate(step.Answer, domain.TraceOutputLimit)})
			return step.Answer
		}
		if perr != nil {
			st.lastRaw = out
		}
	} else {
		logger.Warn("Forced final answer failed: %v", err)
	}

	cause := domain.ErrIterationLimit
	answer := st.lastObservation
	if st.parseFailures > MaxParseRetries {
		cause = domain.ErrReasoningParse
		if raw := rawAnswer(st.lastRaw); raw != "" {
			answer = raw
		}
	}
	if answer == "" {
		answer = rawAnswer(st.lastRaw)
	}
	if answer == "" {
		answer = fmt.Sprintf("I could not reach an answer within %d reasoning steps.", a.maxIter)
	}
	a.record(st, domain.TraceEvent{Type: domain.TraceFinish, Output: domain.Truncate(answer, domain.TraceOutputLimit), Error: cause.Error()})
	return answer
}

// rawAnswer strips reasoning labels from output that failed to parse.
func rawAnswer(out string) string {
	return cleanThought(cutObservation(out))
}

// observe appends a step and its observation to the scratchpad.
func (a *AgentOrchestrator) observe(st *turnState, out, observation string) {
	st.scratchpad.WriteString(strings.TrimRight(cutObservation(out), " \n"))
	st.scratchpad.WriteString(ObservationStop + " " + observation + "\nThought: ")
}

func (a *AgentOrchestrator) record(st *turnState, ev domain.TraceEvent) {
	ev.Timestamp = a.now()
	st.trace = append(st.trace, ev)
}

var toolDescriptions = domain.ToolNameDocumentSearch +
	": Searches the company documents (policies, handbooks, spreadsheets). Use for HR, leave, benefits, payroll and employee questions. Input is a standalone question.\n" +
	domain.ToolNameWebSearch +
	": Searches the public web. Use only for general factual questions unrelated to company policy. Input is a search query."
