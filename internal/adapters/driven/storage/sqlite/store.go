package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lectern/internal/adapters/driven/storage"
	"github.com/custodia-labs/lectern/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "index.db"

// Store is a SQLite database holding the vector collections.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.lectern/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lectern", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Collection returns the named vector collection.
// Only the catalog and content collections exist.
func (s *Store) Collection(name string) (driven.VectorCollection, error) {
	switch name {
	case driven.CollectionCatalog, driven.CollectionContent:
		return &vectorCollection{store: s, table: name}, nil
	default:
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_vector_collections.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
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

// ==================== Vector Collection ====================

// vectorCollection implements driven.VectorCollection over one table.
type vectorCollection struct {
	store *Store
	table string
}

var _ driven.VectorCollection = (*vectorCollection)(nil)

// columnKeys are metadata keys stored as real columns.
var columnKeys = []string{driven.MetaCourseTitle, driven.MetaLessonNumber}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Name returns the collection name.
func (c *vectorCollection) Name() string {
	return c.table
}

// Upsert writes or overwrites records by ID.
func (c *vectorCollection) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := c.insert(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Replace deletes every record matching filter and writes records in one transaction.
func (c *vectorCollection) Replace(ctx context.Context, filter driven.VectorFilter, records []driven.VectorRecord) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := c.delete(ctx, tx, filter); err != nil {
		return err
	}
	if err := c.insert(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns at most k records matching filter, closest first.
func (c *vectorCollection) Query(
	ctx context.Context, embedding []float32, filter driven.VectorFilter, k int,
) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	records, err := c.selectMatching(ctx, c.store.db, filter)
	if err != nil {
		return nil, err
	}
	return storage.Rank(records, embedding, k)
}

// Get returns a record by ID.
func (c *vectorCollection) Get(ctx context.Context, id string) (*driven.VectorRecord, error) {
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT id, document, embedding, lesson_number, metadata FROM "+c.table+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.table, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", c.table, id, domain.ErrNotFound)
	}
	return &records[0], nil
}

// List returns all records matching filter ordered by ID.
func (c *vectorCollection) List(ctx context.Context, filter driven.VectorFilter) ([]driven.VectorRecord, error) {
	return c.selectMatching(ctx, c.store.db, filter)
}

// Delete removes every record matching filter.
func (c *vectorCollection) Delete(ctx context.Context, filter driven.VectorFilter) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := c.delete(ctx, tx, filter); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Count returns the number of records.
func (c *vectorCollection) Count(ctx context.Context) (int, error) {
	var n int
	row := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.table, err)
	}
	return n, nil
}

func (c *vectorCollection) insert(ctx context.Context, tx *sql.Tx, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+c.table+` (id, document, embedding, course_title, lesson_number, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			embedding = excluded.embedding,
			course_title = excluded.course_title,
			lesson_number = excluded.lesson_number,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %d has no ID", domain.ErrInvalidInput, i)
		}

		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}

		var title, lesson any
		if v, ok := r.Metadata[driven.MetaCourseTitle].(string); ok {
			title = v
		}
		if n, ok := toInt(r.Metadata[driven.MetaLessonNumber]); ok {
			lesson = n
		}

		if _, err := stmt.ExecContext(ctx, r.ID, r.Document, float32SliceToBytes(r.Embedding),
			title, lesson, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving record %s: %w", r.ID, err)
		}
	}
	return nil
}

func (c *vectorCollection) delete(ctx context.Context, tx *sql.Tx, filter driven.VectorFilter) error {
	where, args, residual := splitFilter(filter)
	if len(residual) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.table+where, args...); err != nil {
			return fmt.Errorf("deleting from %s: %w", c.table, err)
		}
		return nil
	}

	records, err := c.selectMatching(ctx, tx, filter)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.table+" WHERE id = ?", r.ID); err != nil {
			return fmt.Errorf("deleting %s: %w", r.ID, err)
		}
	}
	return nil
}

// selectMatching loads records matching filter, pushing column filters into SQL.
func (c *vectorCollection) selectMatching(
	ctx context.Context, q execer, filter driven.VectorFilter,
) ([]driven.VectorRecord, error) {
	where, args, residual := splitFilter(filter)

	rows, err := q.QueryContext(ctx,
		"SELECT id, document, embedding, lesson_number, metadata FROM "+c.table+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.table, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(residual) == 0 {
		return records, nil
	}

	out := records[:0]
	for _, r := range records {
		if residual.Matches(r.Metadata) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ==================== Helper Functions ====================

// splitFilter turns column keys into a WHERE clause and returns the rest.
func splitFilter(filter driven.VectorFilter) (string, []any, driven.VectorFilter) {
	var (
		clauses []string
		args    []any
	)
	residual := driven.VectorFilter{}

	for key, value := range filter {
		residual[key] = value
	}
	for _, key := range columnKeys {
		value, ok := filter[key]
		if !ok {
			continue
		}
		delete(residual, key)
		if value == nil {
			clauses = append(clauses, key+" IS NULL")
			continue
		}
		if n, ok := toInt(value); ok {
			value = n
		}
		clauses = append(clauses, key+" = ?")
		args = append(args, value)
	}

	if len(clauses) == 0 {
		return "", nil, residual
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, residual
}

// scanRecords reads id, document, embedding, lesson_number, metadata rows.
func scanRecords(rows *sql.Rows) ([]driven.VectorRecord, error) {
	var records []driven.VectorRecord
	for rows.Next() {
		var (
			r            driven.VectorRecord
			embedding    []byte
			lesson       sql.NullInt64
			metadataJSON string
		)
		if err := rows.Scan(&r.ID, &r.Document, &embedding, &lesson, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Embedding = bytesToFloat32Slice(embedding)

		r.Metadata = map[string]any{}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata of %s: %w", r.ID, err)
			}
		}
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
		if lesson.Valid {
			r.Metadata[driven.MetaLessonNumber] = int(lesson.Int64)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

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
