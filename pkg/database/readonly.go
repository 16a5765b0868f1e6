package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReadOnly runs fn inside a READ ONLY transaction bounded by the query
// timeout. Ranking and matching queries go through here so they can never
// mutate chunk data even if handed write-capable credentials. The
// transaction is committed on success so the server releases the snapshot
// promptly.
func (db *DB) ReadOnly(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
