package postgres

import (
	"context"
	"database/sql"
)

// DBTX is the statement execution surface shared by *sql.DB and *sql.Tx.
// Repositories take this instead of a concrete handle so callers can run
// them inside an existing transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner is satisfied by both *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}
