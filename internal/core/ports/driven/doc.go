// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts provenance-tagged segments from one file
//   - NormaliserRegistry: Dispatches a file to a normaliser by extension
//   - PostProcessor: Turns segments into indexable chunks
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - VectorStore / VectorIndex: Persisted, immutable index generations
//   - LLMService: One language model provider
//   - TurnStore: Durable conversation history
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Tool (web search): Without it, the agent answers general questions
//     from the document corpus only.
//   - PromptStore: Without it, services use their embedded default prompts.
//   - FilteredVectorIndex: Without it, retrieval post-filters a larger
//     unfiltered result set.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
