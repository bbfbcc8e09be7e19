package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries runs the floor engine's statements against a pool or a transaction.
type Queries struct {
	db       DBTX
	billCols BillColumns
}

// New returns Queries that assume every optional bills column exists.
// Use WithBillColumns to narrow to the probed schema.
func New(db DBTX) *Queries {
	return &Queries{db: db, billCols: FullBillColumns()}
}

// WithTx returns a copy bound to tx, keeping the bill column capabilities.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx, billCols: q.billCols}
}

// WithBillColumns returns a copy that only touches the given optional bills columns.
func (q *Queries) WithBillColumns(cols BillColumns) *Queries {
	return &Queries{db: q.db, billCols: cols}
}

type scanner interface {
	Scan(dest ...any) error
}
