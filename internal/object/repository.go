package object

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS stored_objects (
    object_key   TEXT PRIMARY KEY,
    content_type TEXT        NOT NULL,
    size_bytes   BIGINT      NOT NULL,
    checksum     TEXT        NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Repository persists the published-object ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the ledger table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Create inserts a ledger entry for a freshly published object.
func (r *Repository) Create(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO stored_objects (object_key, content_type, size_bytes, checksum)
VALUES ($1, $2, $3, $4)
RETURNING object_key, content_type, size_bytes, checksum, created_at;`

	var stored Record
	err := r.pool.QueryRow(ctx, query, rec.Key, rec.ContentType, rec.SizeBytes, rec.Checksum).
		Scan(&stored.Key, &stored.ContentType, &stored.SizeBytes, &stored.Checksum, &stored.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("create object record: %w", err)
	}
	return stored, nil
}
