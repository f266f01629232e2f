// Package domain defines the core business entities for Ray.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Segment: A provenance-tagged text unit produced by a normaliser
//   - Chunk: An indexable unit stored in the vector index
//   - Turn: One persisted conversation message
//   - Intent: The coarse category of a user query
//   - Citation: A pointer from an answer to a document or web source
//   - TraceEvent: One step of the agent's reasoning log
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
