package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use text/template syntax.
const (
	// PromptIntent labels a query as one of the closed intent set.
	// Fields: .History, .Query.
	PromptIntent = "intent"

	// PromptAgent is the reasoning prompt with tool descriptions.
	// Fields: .Tools, .ToolNames, .History, .Intent, .Query, .Scratchpad.
	PromptAgent = "agent"

	// PromptDocumentQA answers a question from retrieved context.
	// Fields: .Context, .History, .Query.
	PromptDocumentQA = "document_qa"
)
