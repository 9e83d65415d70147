// Package driven lists the infrastructure the core depends on.
//
// Indexing uses CorpusReader, NormaliserRegistry, PostProcessorPipeline,
// EmbeddingService, VectorStore and MetadataStore. Querying adds LLMService
// for moderation and generation. SnapshotCodec packs the index directory
// into a zip archive.
//
// PromptStore, MetricsRecorder, SnapshotFetcher and CorpusWatcher may be
// nil: built-in prompts are used, nothing is recorded, remote restore and
// watch mode are unavailable.
//
// Implementations live under internal/adapters, internal/connectors,
// internal/normalisers and internal/postprocessors.
package driven
