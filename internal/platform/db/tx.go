package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sitecomply/sitecomply/internal/shared"
)

// Beginner starts transactions; satisfied by *pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside a RepeatableRead transaction. Rollback is deferred
// unconditionally so a panic inside fn cannot leak the connection; begin and
// commit failures surface as TransientIOError since they are retryable.
func WithTx(ctx context.Context, pool Beginner, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return &shared.TransientIOError{Op: "begin tx", Err: err}
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &shared.TransientIOError{Op: "commit tx", Err: err}
	}

	return nil
}
