package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `table_id, code, number, status, order_count, group_id`

func scanTable(row scanner) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.Code, &t.Number, &t.Status, &t.OrderCount, &t.GroupID)
	return t, err
}

func (q *Queries) queryTables(ctx context.Context, sql string, args ...interface{}) ([]Table, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTableByID = `SELECT ` + tableColumns + ` FROM tables WHERE table_id = $1`

func (q *Queries) GetTableByID(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByID, id))
}

const getTableByCode = `SELECT ` + tableColumns + ` FROM tables WHERE code = $1`

func (q *Queries) GetTableByCode(ctx context.Context, code string) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByCode, code))
}

const getTableByNumber = `SELECT ` + tableColumns + ` FROM tables WHERE number = $1`

func (q *Queries) GetTableByNumber(ctx context.Context, number int32) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByNumber, number))
}

const lockTable = `SELECT ` + tableColumns + ` FROM tables WHERE table_id = $1 FOR UPDATE`

// LockTable re-reads a table row and holds its row lock until the tx ends.
func (q *Queries) LockTable(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, lockTable, id))
}

const listTables = `SELECT ` + tableColumns + ` FROM tables ORDER BY number`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	return q.queryTables(ctx, listTables)
}

const lockTablesByGroup = `SELECT ` + tableColumns + ` FROM tables WHERE group_id = $1 ORDER BY number FOR UPDATE`

// LockTablesByGroup returns every table sharing groupID, locked, ordered by number.
func (q *Queries) LockTablesByGroup(ctx context.Context, groupID pgtype.UUID) ([]Table, error) {
	return q.queryTables(ctx, lockTablesByGroup, groupID)
}

const startTable = `
UPDATE tables SET status = 'OCCUPIED', order_count = 1, group_id = NULL
WHERE table_id = $1
RETURNING ` + tableColumns

// StartTable opens a table for a fresh sitting, leaving any merge group.
func (q *Queries) StartTable(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, startTable, id))
}

const setTableGroup = `
UPDATE tables SET group_id = $2, status = 'OCCUPIED'
WHERE table_id = $1
RETURNING ` + tableColumns

type SetTableGroupParams struct {
	ID      int64
	GroupID pgtype.UUID
}

func (q *Queries) SetTableGroup(ctx context.Context, arg SetTableGroupParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, setTableGroup, arg.ID, arg.GroupID))
}

const clearTableGroup = `
UPDATE tables SET group_id = NULL
WHERE table_id = $1
RETURNING ` + tableColumns

func (q *Queries) ClearTableGroup(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, clearTableGroup, id))
}

const occupyTable = `
UPDATE tables SET status = 'OCCUPIED', order_count = GREATEST(order_count, 1)
WHERE table_id = $1
RETURNING ` + tableColumns

// OccupyTable flips a table to OCCUPIED without touching its group.
func (q *Queries) OccupyTable(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, occupyTable, id))
}

const incrementTableOrderCount = `
UPDATE tables SET order_count = order_count + 1
WHERE table_id = $1
RETURNING ` + tableColumns

func (q *Queries) IncrementTableOrderCount(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, incrementTableOrderCount, id))
}

const resetTable = `
UPDATE tables SET status = 'EMPTY', order_count = 0, group_id = NULL
WHERE table_id = $1
RETURNING ` + tableColumns

func (q *Queries) ResetTable(ctx context.Context, id int64) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, resetTable, id))
}

const resetTables = `
UPDATE tables SET status = 'EMPTY', order_count = 0, group_id = NULL
WHERE table_id = ANY($1::bigint[])`

func (q *Queries) ResetTables(ctx context.Context, ids []int64) (int64, error) {
	tag, err := q.db.Exec(ctx, resetTables, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const resetAllTables = `UPDATE tables SET status = 'EMPTY', order_count = 0, group_id = NULL`

func (q *Queries) ResetAllTables(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, resetAllTables)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const setTableState = `
UPDATE tables SET status = $2, order_count = $3, group_id = $4
WHERE table_id = $1
RETURNING ` + tableColumns

type SetTableStateParams struct {
	ID         int64
	Status     string
	OrderCount int32
	GroupID    pgtype.UUID
}

func (q *Queries) SetTableState(ctx context.Context, arg SetTableStateParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, setTableState, arg.ID, arg.Status, arg.OrderCount, arg.GroupID))
}

const setTableStatus = `
UPDATE tables SET status = $2
WHERE table_id = $1
RETURNING ` + tableColumns

type SetTableStatusParams struct {
	ID     int64
	Status string
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, setTableStatus, arg.ID, arg.Status))
}
