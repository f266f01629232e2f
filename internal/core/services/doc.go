// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion side is IngestService and IndexManager; the question side is
// RetrievalEngine, IntentClassifier, LLMRouter, ConversationMemory,
// DocumentQA and AgentOrchestrator, which ties them together.
//
// Services are pure Go with no CGO or external dependencies.
package services
