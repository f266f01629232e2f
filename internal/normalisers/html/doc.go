// Package html provides a Normaliser implementation for HTML documents.
// It tokenises the markup and extracts readable text, dropping scripts,
// styles and other non-visible elements, into a single body segment.
package html
