package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the server-side document store backing multi-device
// deployments.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a document store on the given pool. queryTimeout
// sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}
}

// RunMigrations creates the documents table if it does not exist.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS documents (
			database_id TEXT        NOT NULL,
			object_id   TEXT        NOT NULL,
			data        BYTEA       NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (database_id, object_id)
		);
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate documents table: %w", err)
	}
	return nil
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresStore) Exists(ctx context.Context, databaseID, objectID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM documents WHERE database_id = $1 AND object_id = $2`,
		databaseID, objectID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Load(ctx context.Context, databaseID, objectID string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE database_id = $1 AND object_id = $2`,
		databaseID, objectID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) Save(ctx context.Context, databaseID, objectID string, data []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (database_id, object_id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (database_id, object_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		databaseID, objectID, data,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, databaseID, objectID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE database_id = $1 AND object_id = $2`,
		databaseID, objectID,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
