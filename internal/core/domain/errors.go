package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file extension no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrParse indicates a single file could not be parsed.
	// Ingestion skips the file and continues.
	ErrParse = errors.New("parse failed")

	// ErrIndexUnavailable indicates the vector index is missing or corrupt.
	// Callers recover by treating the index as empty.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingMismatch indicates vectors from a different embedding model
	// or dimension were offered to an index.
	ErrEmbeddingMismatch = errors.New("embedding model mismatch")

	// ErrLLMUnavailable indicates no language model is configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrProvider indicates a single language model call failed.
	ErrProvider = errors.New("provider failed")

	// ErrAllProvidersFailed indicates every provider in the router failed.
	ErrAllProvidersFailed = errors.New("all language models failed")

	// ErrTool indicates a tool invocation failed.
	ErrTool = errors.New("tool failed")

	// ErrReasoningParse indicates model output did not follow the
	// Thought/Action/Final Answer grammar.
	ErrReasoningParse = errors.New("malformed reasoning output")

	// ErrIterationLimit indicates the reasoning loop hit its step cap.
	ErrIterationLimit = errors.New("iteration limit exceeded")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ParseError reports a file that could not be normalised.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

// Unwrap allows errors.Is(err, ErrParse) and access to the cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ProviderError reports one failed language model call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap allows errors.Is(err, ErrProvider) and access to the cause.
func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// ExhaustedError aggregates the failure of every provider in a router.
type ExhaustedError struct {
	Failures []*ProviderError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: [%s]", ErrAllProvidersFailed, strings.Join(parts, "; "))
}

// Unwrap allows errors.Is(err, ErrAllProvidersFailed).
func (e *ExhaustedError) Unwrap() error {
	return ErrAllProvidersFailed
}

// ToolError reports a failed tool invocation.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

// Unwrap allows errors.Is(err, ErrTool) and access to the cause.
func (e *ToolError) Unwrap() []error {
	return []error{ErrTool, e.Err}
}

// ReasoningParseError reports model output that did not parse as a step.
type ReasoningParseError struct {
	Text   string
	Reason string
}

func (e *ReasoningParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrReasoningParse, e.Reason)
}

// Unwrap allows errors.Is(err, ErrReasoningParse).
func (e *ReasoningParseError) Unwrap() error {
	return ErrReasoningParse
}
