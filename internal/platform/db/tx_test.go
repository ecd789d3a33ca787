package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/sitecomply/sitecomply/internal/shared"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
		return nil
	})
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	boom := errors.New("boom")
	err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	tx := &fakeTx{}
	require.Panics(t, func() {
		_ = WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			panic("mid-transaction")
		})
	})
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
}

func TestWithTxWrapsBeginAndCommitFailures(t *testing.T) {
	var transient *shared.TransientIOError

	err := WithTx(context.Background(), &fakeBeginner{beginErr: errors.New("down")}, func(pgx.Tx) error {
		return nil
	})
	require.ErrorAs(t, err, &transient)

	tx := &fakeTx{commitErr: errors.New("lost connection")}
	err = WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
		return nil
	})
	require.ErrorAs(t, err, &transient)
	require.True(t, tx.rolledBack)
}
