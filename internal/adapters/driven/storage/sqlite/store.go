package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/openpdpa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// FileName is the database file inside the index directory.
const FileName = "collection.db"

// DefaultCollection is the name of the collection holding the corpus.
const DefaultCollection = "pdpa"

var _ driven.VectorStore = (*Store)(nil)

// Store is a single named vector collection in a SQLite database.
type Store struct {
	db         *sql.DB
	path       string
	collection string
}

// Option configures a Store.
type Option func(*Store)

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.collection = name
		}
	}
}

// NewStore opens (creating if needed) the collection database in dir.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: index directory is empty", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := dbPath + "?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Open is a driven.VectorStoreOpener for the default collection.
func Open(dir string) (driven.VectorStore, error) {
	return NewStore(dir)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_collection.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Exists reports whether the collection has been created.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, err := s.dimension(ctx)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Recreate drops the collection with its entries and creates it empty.
func (s *Store) Recreate(ctx context.Context, dimension int, metric domain.DistanceMetric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	if metric != domain.DistanceCosine {
		return fmt.Errorf("%w: unsupported distance metric %q", domain.ErrInvalidInput, metric)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric) VALUES (?, ?, ?)
	`, s.collection, dimension, string(metric)); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Upsert inserts entries, replacing any entry with the same ID.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dimension, err := s.dimension(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (collection, id, source, title, content, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			content = excluded.content,
			vector = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry without id", domain.ErrInvalidInput)
		}
		if len(e.Vector) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, collection has %d",
				domain.ErrInvalidInput, e.ID, len(e.Vector), dimension)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, e.ID, e.Source, e.Title, e.Content,
			float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("saving entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search scores every entry by cosine similarity and returns the best k.
// Ties are broken by ID so results are deterministic.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		k = 1
	}
	dimension, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, collection has %d",
			domain.ErrInvalidInput, len(vector), dimension)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, title, content, vector FROM entries WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	queryNorm := norm(vector)
	type hit struct {
		id    string
		entry domain.ScoredEntry
	}
	var hits []hit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			h    hit
			blob []byte
		)
		if err := rows.Scan(&h.id, &h.entry.Source, &h.entry.Title, &h.entry.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		h.entry.Score = cosine(vector, queryNorm, bytesToFloat32Slice(blob))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].entry.Score != hits[j].entry.Score {
			return hits[i].entry.Score > hits[j].entry.Score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.ScoredEntry, len(hits))
	for i, h := range hits {
		results[i] = h.entry
	}
	return results, nil
}

// Health runs SQLite's quick integrity check and counts the entries.
func (s *Store) Health(ctx context.Context) (domain.IndexHealth, error) {
	if _, err := s.dimension(ctx); err != nil {
		return domain.IndexHealth{}, err
	}

	var check string
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&check); err != nil {
		return domain.IndexHealth{}, fmt.Errorf("integrity check: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries WHERE collection = ?
	`, s.collection).Scan(&count); err != nil {
		return domain.IndexHealth{}, fmt.Errorf("counting entries: %w", err)
	}

	return domain.IndexHealth{OK: check == "ok", Count: count}, nil
}

// dimension returns the vector size of the collection, or ErrIndexNotFound.
func (s *Store) dimension(ctx context.Context) (int, error) {
	var dimension int
	err := s.db.QueryRowContext(ctx, `
		SELECT dimension FROM collections WHERE name = ?
	`, s.collection).Scan(&dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.collection)
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection: %w", err)
	}
	return dimension, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b given the norm of a.
// Zero vectors score 0.
func cosine(a []float32, normA float64, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	normB := norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}
