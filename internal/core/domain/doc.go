// Package domain holds the OpenPDPA value types shared by every layer.
//
// The main ones:
//
//   - RawDocument and Document: a corpus file before and after text extraction
//   - Chunk and IndexEntry: a passage with its UUIDv5 id, with and without its vector
//   - QueryState and QueryResult: what flows through moderate, retrieve and generate
//   - Settings: runtime configuration after defaults and validation
//   - Prompts: the moderation and generation system prompts
//
// The package imports the standard library only; nothing under internal/
// may be imported from here.
package domain
