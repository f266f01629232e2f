package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the coarse category of a query, used to bias tool routing.
type Intent string

// The closed set of intents.
const (
	IntentPolicyLookup Intent = "POLICY_LOOKUP"
	IntentGeneralFact  Intent = "GENERAL_FACT"
	IntentSmallTalk    Intent = "SMALL_TALK"
)

// ParseIntent maps a label to an intent.
// Anything outside the closed set becomes SMALL_TALK.
func ParseIntent(label string) Intent {
	label = strings.ToUpper(strings.Trim(strings.TrimSpace(label), ".\"'`"))
	switch Intent(label) {
	case IntentPolicyLookup, IntentGeneralFact, IntentSmallTalk:
		return Intent(label)
	default:
		return IntentSmallTalk
	}
}

// String returns the string representation.
func (i Intent) String() string {
	return string(i)
}

// CitationKind distinguishes document from web citations.
type CitationKind string

// Citation kinds.
const (
	CitationDocument CitationKind = "document"
	CitationWeb      CitationKind = "web"
)

// Citation points from an answer to the source that supports it.
// Document citations set File and Location; web citations set URL and Title.
type Citation struct {
	Kind     CitationKind `json:"kind"`
	File     string       `json:"file,omitempty"`
	Location string       `json:"location,omitempty"`
	URL      string       `json:"url,omitempty"`
	Title    string       `json:"title,omitempty"`
	Snippet  string       `json:"snippet"`
}

// SnippetLength is the number of characters of chunk content kept in a
// document citation.
const SnippetLength = 200

// DocumentCitation builds a citation for a retrieved chunk.
func DocumentCitation(c Chunk) Citation {
	return Citation{
		Kind:     CitationDocument,
		File:     c.Provenance.FileName(),
		Location: c.Provenance.Location.String(),
		Snippet:  Truncate(c.Content, SnippetLength) + "...",
	}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TurnMetadata is the assistant-side context stored with a turn.
type TurnMetadata struct {
	Intent Intent       `json:"intent,omitempty"`
	Trace  []TraceEvent `json:"trace,omitempty"`
}

// Turn is one persisted conversation message. Immutable once stored.
type Turn struct {
	// Role is who produced the message.
	Role Role

	// Text is the message body.
	Text string

	// Timestamp is when the message was produced.
	Timestamp time.Time

	// Citations supporting an assistant answer.
	Citations []Citation

	// Metadata carries the intent and reasoning trace of an answer.
	Metadata *TurnMetadata
}

// Session is a conversation identified by ID.
// Its turns live in durable storage.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Turns     int
}

// AgentResponse is the result of handling one user query.
type AgentResponse struct {
	SessionID string       `json:"session_id"`
	Answer    string       `json:"answer"`
	Intent    Intent       `json:"intent"`
	Citations []Citation   `json:"sources"`
	Trace     []TraceEvent `json:"trace"`
}
