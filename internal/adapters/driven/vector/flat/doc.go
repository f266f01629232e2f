// Package flat provides an exact (brute-force) cosine similarity vector index
// persisted as a directory:
//
//   - vectors.bin: a little-endian float32 matrix with a small header naming
//     the embedding model, the dimension and the generation's docstore. Its
//     presence marks the index as existing, and renaming it into place is
//     what commits a generation.
//   - docstore-<uuid>.db: a SQLite side-table per generation mapping each
//     vector row to its chunk content and provenance.
//
// Writers serialise on an flock(2) lock file beside the directory.
//
// Index values are immutable generations. Append returns a new generation
// and leaves the receiver untouched, so readers holding an older generation
// never observe a partially updated index.
package flat
