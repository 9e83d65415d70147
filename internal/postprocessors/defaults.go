package postprocessors

import (
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/postprocessors/chunker"
	"github.com/custodia-labs/openpdpa/internal/postprocessors/identity"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("identity", buildIdentity)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 4000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
//   - separators ([]string): Separators tried in order (default: paragraph, line, space, character)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}
	if seps := getStringsFromConfig(cfg, "separators"); len(seps) > 0 {
		opts = append(opts, chunker.WithSeparators(seps...))
	}

	return chunker.New(opts...), nil
}

// buildIdentity creates the stable ID processor. It takes no config.
func buildIdentity(_ map[string]any) (driven.PostProcessor, error) {
	return identity.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringsFromConfig extracts a string list, accepting []string or []any.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
