package driven

// ConfigStore reads and writes the optional openpdpa.toml tuning file.
// Keys are dotted paths such as "query.top_k". Typed getters return the
// zero value when a key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set updates a key and writes the file.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file, which need not exist yet.
	Path() string
}
