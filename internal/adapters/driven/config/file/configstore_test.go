package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, store.Path())
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestNewConfigStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	store, err := NewConfigStore(path)

	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "loading must not create the file")
}

func TestNewConfigStore_ReadsNestedTables(t *testing.T) {
	path := writeConfig(t, `
[index]
dir = "/srv/index"

[chunker]
chunk_size = 2000
overlap = 100

[providers]
rate_limit = 2.5

[query]
top_k = 8
`)

	store, err := NewConfigStore(path)

	require.NoError(t, err)
	assert.Equal(t, "/srv/index", store.GetString("index.dir"))
	assert.Equal(t, 2000, store.GetInt("chunker.chunk_size"))
	assert.Equal(t, 100, store.GetInt("chunker.overlap"))
	assert.Equal(t, 2.5, store.GetFloat("providers.rate_limit"))
	assert.Equal(t, 8, store.GetInt("query.top_k"))
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	path := writeConfig(t, "this is not valid TOML {{{[[")

	store, err := NewConfigStore(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Nil(t, store)
}

func TestNewConfigStore_UnreadableFile(t *testing.T) {
	// a directory where the file should be
	store, err := NewConfigStore(t.TempDir())

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `
name = "pdpa"
count = 3
ratio = 0.5
enabled = true
tags = ["a", "b"]
`))
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "string", got: store.GetString("name"), want: "pdpa"},
		{name: "string wrong type", got: store.GetString("count"), want: ""},
		{name: "string missing", got: store.GetString("missing"), want: ""},
		{name: "int", got: store.GetInt("count"), want: 3},
		{name: "int wrong type", got: store.GetInt("name"), want: 0},
		{name: "float", got: store.GetFloat("ratio"), want: 0.5},
		{name: "float from int", got: store.GetFloat("count"), want: 3.0},
		{name: "float wrong type", got: store.GetFloat("name"), want: 0.0},
		{name: "bool", got: store.GetBool("enabled"), want: true},
		{name: "bool wrong type", got: store.GetBool("name"), want: false},
		{name: "slice", got: store.GetStringSlice("tags"), want: []string{"a", "b"}},
		{name: "slice wrong type", got: store.GetStringSlice("name"), want: []string(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("chunker.chunk_size", 1500))
	require.NoError(t, store.Set("index.dir", "idx"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[chunker]")
	assert.Contains(t, string(data), "chunk_size = 1500")

	reloaded, err := NewConfigStore(path)
	require.NoError(t, err)
	assert.Equal(t, 1500, reloaded.GetInt("chunker.chunk_size"))
	assert.Equal(t, "idx", reloaded.GetString("index.dir"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)

	require.NoError(t, store.Set("a", 1))
	require.NoError(t, store.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultConfigFile, entries[0].Name())
}

func TestConfigStore_SetConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(filepath.Join(t.TempDir(), DefaultConfigFile))
	require.NoError(t, err)

	require.NoError(t, store.Set("query", "flat"))

	assert.Error(t, store.Set("query.top_k", 5))
}

func TestConfigStore_LoadReplacesData(t *testing.T) {
	path := writeConfig(t, `key = "old"`)
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`key = "new"`), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, "new", store.GetString("key"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(filepath.Join(t.TempDir(), DefaultConfigFile))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("counter", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}

func TestFlattenAndNestMap(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{"b": int64(1), "c": map[string]any{"d": "x"}},
		"e": true,
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"a.b": int64(1), "a.c.d": "x", "e": true}, flat)

	back, err := nestMap(flat)
	require.NoError(t, err)
	assert.Equal(t, nested, back)
}

func TestConfigStore_SetFailureRollsBack(t *testing.T) {
	store, err := NewConfigStore(filepath.Join(t.TempDir(), DefaultConfigFile))
	require.NoError(t, err)
	require.NoError(t, store.Set("query", "flat"))

	require.Error(t, store.Set("query.top_k", 5))

	_, ok := store.Get("query.top_k")
	assert.False(t, ok)
	assert.NoError(t, store.Save())
}
