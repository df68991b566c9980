package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles persistence of the file-fact cache to SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the cache database at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000", // 16MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Clear removes all cached facts and metadata.
func (s *Store) Clear() error {
	for _, table := range []string{"file_facts", "metadata"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// LoadEntries returns every persisted entry ordered by file path.
func (s *Store) LoadEntries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filepath, content_hash, schema_version, facts
		FROM file_facts
		ORDER BY filepath
	`)
	if err != nil {
		return nil, fmt.Errorf("querying file facts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Filepath, &e.ContentHash, &e.SchemaVersion, &e.Facts); err != nil {
			return nil, fmt.Errorf("scanning file facts: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceEntries swaps the whole cache content for entries in a single
// transaction.
func (s *Store) ReplaceEntries(ctx context.Context, entries []Entry) error {
	batch, err := s.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("starting batch: %w", err)
	}
	if err := batch.DeleteAll(); err != nil {
		batch.Rollback()
		return fmt.Errorf("clearing file facts: %w", err)
	}
	for _, e := range entries {
		if err := batch.InsertEntry(e); err != nil {
			batch.Rollback()
			return fmt.Errorf("inserting %s: %w", e.Filepath, err)
		}
	}
	if err := batch.SetMetadata("written_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		batch.Rollback()
		return fmt.Errorf("storing metadata: %w", err)
	}
	return batch.Commit()
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	return value, err
}

// GetStats returns statistics about the cache.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{DBPath: s.dbPath}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM file_facts").Scan(&stats.EntryCount); err != nil {
		return nil, fmt.Errorf("counting file facts: %w", err)
	}
	if ts, err := s.GetMetadata("written_at"); err == nil {
		stats.WrittenAt, _ = time.Parse(time.RFC3339, ts)
	}
	return stats, nil
}

// BeginBatch starts a transaction for batch writes.
// Call Commit() when done, or Rollback() on error.
func (s *Store) BeginBatch(ctx context.Context) (*BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx wraps a transaction for batch operations.
type BatchTx struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (b *BatchTx) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *BatchTx) Rollback() error {
	return b.tx.Rollback()
}

// DeleteAll removes every cached entry within the batch.
func (b *BatchTx) DeleteAll() error {
	_, err := b.tx.Exec("DELETE FROM file_facts")
	return err
}

// InsertEntry inserts or replaces an entry within the batch.
func (b *BatchTx) InsertEntry(e Entry) error {
	_, err := b.tx.Exec(`
		INSERT INTO file_facts (filepath, content_hash, schema_version, facts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			content_hash = excluded.content_hash,
			schema_version = excluded.schema_version,
			facts = excluded.facts
	`, e.Filepath, e.ContentHash, e.SchemaVersion, e.Facts)
	return err
}

// SetMetadata stores a key-value pair within the batch.
func (b *BatchTx) SetMetadata(key, value string) error {
	_, err := b.tx.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
