// Package normalisers turns raw corpus files into documents with
// whitespace-normalised text. Format-specific normalisers live in
// subpackages and are selected by the Registry on MIME type.
//
// Normalisers are registered with the Registry at startup.
package normalisers
