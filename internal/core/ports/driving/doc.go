// Package driving defines interfaces that external actors (CLI, MCP clients)
// use to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
//   - IngestService: Builds and resets the document index
//   - RetrievalService: Schema-first similarity retrieval
//   - AgentService: One grounded conversation turn
//   - ConversationService: Session history
//   - SettingsService: Effective settings and provider selection
//
// Implementations of these interfaces live in internal/core/services.
package driving
