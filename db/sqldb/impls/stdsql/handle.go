// Package stdsql adapts database/sql to sqldb for drivers registered with database/sql
package stdsql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zeptools/gw-invoice/db/sqldb"
)

type Handle struct {
	*sql.DB // [Embedded]
}

// Ensure stdsql.Handle implements sqldb.Handle interface
var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	return h.DB.ExecContext(ctx, query, args...) // sql.Result satisfies sqldb.Result
}

func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	return &Row{row: h.DB.QueryRowContext(ctx, query, args...)}
}

// BeginTx starts a transaction on a pooled connection
func (h *Handle) BeginTx(ctx context.Context) (sqldb.Tx, error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

type Tx struct {
	tx *sql.Tx
}

// Ensure stdsql.Tx implements sqldb.Tx interface
var _ sqldb.Tx = (*Tx)(nil)

func (t *Tx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *Tx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	return &Row{row: t.tx.QueryRowContext(ctx, query, args...)}
}

type Row struct {
	row *sql.Row
}

// Ensure stdsql.Row implements sqldb.Row interface
var _ sqldb.Row = (*Row)(nil)

func (r *Row) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return sqldb.ErrNoRows
	}
	return err
}
