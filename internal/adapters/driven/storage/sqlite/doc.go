// Package sqlite provides the persistent vector collections of the course index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each collection is a table:
//
//   - course_catalog: one record per course, keyed by title
//   - course_content: one record per chunk, filterable by course and lesson
//
// Embeddings are stored as little-endian float32 blobs and ranked by cosine
// distance in Go with a full scan of the filtered rows.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.lectern/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. Replace runs in a single transaction so
// readers never observe a course between its delete and its write.
package sqlite
