package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type txKey struct{}

// TxManager opens transactions that span several repositories.  The
// active *sql.Tx travels in the context handed to fn; repository methods
// called with that context join the transaction transparently.
type TxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager bound to db.
func NewTxManager(db *sql.DB) *TxManager { return &TxManager{db: db} }

// WithTx runs fn inside a transaction.  It commits when fn returns nil
// and rolls back otherwise, returning fn's error unchanged.  Nested calls
// reuse the outer transaction.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn picks the transaction from ctx when present, db otherwise.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
