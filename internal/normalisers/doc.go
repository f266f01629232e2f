// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract
// provenance-tagged segments from files with specific extensions.
//
// Normalisers are registered with the Registry at startup; see NewDefaultRegistry.
package normalisers
