package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Conn is what the session and cache helpers run against. *sql.DB and
// *sql.Tx both satisfy it, so a helper works the same in and out of a
// transaction.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	sqlscan.Querier
}

// TxStarter opens transactions; *sql.DB satisfies it.
type TxStarter interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ Conn      = (*sql.DB)(nil)
	_ Conn      = (*sql.Tx)(nil)
	_ TxStarter = (*sql.DB)(nil)
)

// InTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func InTx(ctx context.Context, db TxStarter, fn func(tx Conn) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
