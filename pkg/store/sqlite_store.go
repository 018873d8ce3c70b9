package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/pkg/domain"
	"docqa/pkg/store/migrations"
)

// DefaultSQLitePath is used when no database path is configured.
const DefaultSQLitePath = "data/knowledge.db"

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	path string
	db   *lazyHandle[*sql.DB]
}

// NewSQLiteStore returns an uninitialized store for the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultSQLitePath
	}
	return &SQLiteStore{
		path: path,
		db: &lazyHandle[*sql.DB]{
			open:  func(ctx context.Context) (*sql.DB, error) { return openSQLite(ctx, path) },
			close: func(db *sql.DB) error { return db.Close() },
		},
	}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Init opens the database and applies the schema. It is safe to call
// repeatedly and concurrently; after a failure the next call tries again.
func (s *SQLiteStore) Init(ctx context.Context) error {
	return wrapErr("init", s.db.init(ctx))
}

// Close releases the database. The store cannot be reused afterwards.
func (s *SQLiteStore) Close() error {
	return wrapErr("close", s.db.shutdown())
}

func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	return s.db.get(ctx)
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(ctx, db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// migrate applies numbered *.up.sql files newer than the recorded version.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(timeLayout)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// InsertDocument stores the document and all of its chunks atomically.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	db, err := s.conn(ctx)
	if err != nil {
		return wrapErr("insert document", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("insert document", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, content, uploaded_at, word_count) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Content, doc.UploadedAt.UTC().Format(timeLayout), doc.WordCount,
	); err != nil {
		return wrapErr("insert document", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return wrapErr("insert chunks", err)
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, doc.ID, chunk.ChunkIndex, chunk.Content); err != nil {
			return wrapErr("insert chunks", err)
		}
	}
	return wrapErr("insert document", tx.Commit())
}

// ListDocuments returns document summaries, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, wrapErr("list documents", err)
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, uploaded_at, word_count FROM documents ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, wrapErr("list documents", err)
	}
	defer rows.Close()

	docs := []domain.DocumentSummary{}
	for rows.Next() {
		var (
			doc        domain.DocumentSummary
			uploadedAt string
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &uploadedAt, &doc.WordCount); err != nil {
			return nil, wrapErr("list documents", err)
		}
		if doc.UploadedAt, err = parseTime(uploadedAt); err != nil {
			return nil, wrapErr("list documents", err)
		}
		docs = append(docs, doc)
	}
	return docs, wrapErr("list documents", rows.Err())
}

// GetDocument returns a full document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (domain.Document, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.Document{}, false, wrapErr("get document", err)
	}
	var (
		doc        domain.Document
		uploadedAt string
	)
	err = db.QueryRowContext(ctx,
		`SELECT id, name, content, uploaded_at, word_count FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Name, &doc.Content, &uploadedAt, &doc.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, wrapErr("get document", err)
	}
	if doc.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return domain.Document{}, false, wrapErr("get document", err)
	}
	return doc, true, nil
}

// DeleteDocument removes a document and its chunks. It reports whether the
// document existed.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return false, wrapErr("delete chunks", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("delete document", err)
	}
	if err := tx.Commit(); err != nil {
		return false, wrapErr("delete document", err)
	}
	return n > 0, nil
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int, error) {
	return s.scalar(ctx, "count documents", `SELECT COUNT(*) FROM documents`)
}

// SumWordCounts returns the total word count across documents.
func (s *SQLiteStore) SumWordCounts(ctx context.Context) (int, error) {
	return s.scalar(ctx, "sum word counts", `SELECT COALESCE(SUM(word_count), 0) FROM documents`)
}

func (s *SQLiteStore) scalar(ctx context.Context, op, query string) (int, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	var n int
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

// ListChunksByDocument returns a document's chunks by index.
func (s *SQLiteStore) ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, "list chunks",
		`SELECT id, document_id, chunk_index, content FROM chunks WHERE document_id = ? ORDER BY chunk_index`,
		documentID)
}

// ListAllChunks returns every chunk ordered by document then index.
func (s *SQLiteStore) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, "list all chunks",
		`SELECT id, document_id, chunk_index, content FROM chunks ORDER BY document_id, chunk_index`)
}

func (s *SQLiteStore) queryChunks(ctx context.Context, op, query string, args ...any) ([]domain.Chunk, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content); err != nil {
			return nil, wrapErr(op, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, wrapErr(op, rows.Err())
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
