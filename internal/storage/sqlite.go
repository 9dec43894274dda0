package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded local document store used on the offline-first
// path. The driver is pure Go, so no cgo or external library is needed.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) a document store at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// modernc's driver serializes writes per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	ddl := `
		CREATE TABLE IF NOT EXISTS documents (
			database_id TEXT    NOT NULL,
			object_id   TEXT    NOT NULL,
			data        BLOB    NOT NULL,
			updated_at  INTEGER NOT NULL,
			PRIMARY KEY (database_id, object_id)
		);
	`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, databaseID, objectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE database_id = ? AND object_id = ?`,
		databaseID, objectID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Load(ctx context.Context, databaseID, objectID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE database_id = ? AND object_id = ?`,
		databaseID, objectID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) Save(ctx context.Context, databaseID, objectID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (database_id, object_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (database_id, object_id)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		databaseID, objectID, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, databaseID, objectID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE database_id = ? AND object_id = ?`,
		databaseID, objectID,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
