package database

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrColumnUnsupported is returned when a statement needs an optional bills
// column the connected schema does not have.
var ErrColumnUnsupported = errors.New("bills column not present in schema")

func scanBill(row scanner) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.TableID, &b.TotalPrice, &b.PaymentType, &b.Status, &b.VoidReason,
		&b.Remark, &b.ClosedByID, &b.ClosedByName, &b.CashReceived, &b.ChangeAmount, &b.CreatedAt)
	return b, err
}

// columnList accumulates "column = $n" style fragments with positional args.
type columnList struct {
	names []string
	args  []interface{}
}

func (c *columnList) add(name string, v interface{}) {
	c.names = append(c.names, name)
	c.args = append(c.args, v)
}

func (c *columnList) placeholders(offset int) []string {
	ph := make([]string, len(c.names))
	for i := range c.names {
		ph[i] = "$" + strconv.Itoa(offset+i+1)
	}
	return ph
}

type InsertBillParams struct {
	TableID      pgtype.Int8
	TotalPrice   pgtype.Numeric
	PaymentType  string
	Status       string
	VoidReason   pgtype.Text
	Remark       pgtype.Text
	ClosedByID   pgtype.Text
	ClosedByName pgtype.Text
	CashReceived pgtype.Numeric
	ChangeAmount pgtype.Numeric
}

// InsertBill writes a bill row using only the columns the schema supports.
func (q *Queries) InsertBill(ctx context.Context, arg InsertBillParams) (Bill, error) {
	var cols columnList
	cols.add("table_id", arg.TableID)
	cols.add("total_price", arg.TotalPrice)
	cols.add("payment_type", arg.PaymentType)
	cols.add("status", arg.Status)
	if q.billCols.VoidReason {
		cols.add("void_reason", arg.VoidReason)
	}
	if q.billCols.Remark {
		cols.add("remark", arg.Remark)
	}
	if q.billCols.ClosedByID {
		cols.add("closed_by_id", arg.ClosedByID)
	}
	if q.billCols.ClosedByName {
		cols.add("closed_by_name", arg.ClosedByName)
	}
	if q.billCols.CashReceived {
		cols.add("cash_received", arg.CashReceived)
	}
	if q.billCols.ChangeAmount {
		cols.add("change_amount", arg.ChangeAmount)
	}

	sql := "INSERT INTO bills (" + strings.Join(cols.names, ", ") + ") VALUES (" +
		strings.Join(cols.placeholders(0), ", ") + ") RETURNING " + q.billCols.selectList()
	return scanBill(q.db.QueryRow(ctx, sql, cols.args...))
}

func (q *Queries) GetBill(ctx context.Context, id int64) (Bill, error) {
	sql := "SELECT " + q.billCols.selectList() + " FROM bills WHERE bill_id = $1"
	return scanBill(q.db.QueryRow(ctx, sql, id))
}

// LockBill reads a bill and holds its row lock until the tx ends.
func (q *Queries) LockBill(ctx context.Context, id int64) (Bill, error) {
	sql := "SELECT " + q.billCols.selectList() + " FROM bills WHERE bill_id = $1 FOR UPDATE"
	return scanBill(q.db.QueryRow(ctx, sql, id))
}

type VoidBillParams struct {
	ID           int64
	VoidReason   string
	ClosedByID   pgtype.Text
	ClosedByName pgtype.Text
}

// VoidBill voids a non-void bill and zeroes its total. An invalid ClosedByID
// leaves the closer columns as they are. pgx.ErrNoRows means the bill is
// missing or already void.
func (q *Queries) VoidBill(ctx context.Context, arg VoidBillParams) (Bill, error) {
	var set columnList
	if q.billCols.VoidReason {
		set.add("void_reason", arg.VoidReason)
	}
	if arg.ClosedByID.Valid {
		if q.billCols.ClosedByID {
			set.add("closed_by_id", arg.ClosedByID)
		}
		if q.billCols.ClosedByName {
			set.add("closed_by_name", arg.ClosedByName)
		}
	}

	assignments := []string{"status = 'VOID'", "total_price = 0"}
	for i, ph := range set.placeholders(1) {
		assignments = append(assignments, set.names[i]+" = "+ph)
	}
	sql := "UPDATE bills SET " + strings.Join(assignments, ", ") +
		" WHERE bill_id = $1 AND status <> 'VOID' RETURNING " + q.billCols.selectList()
	args := append([]interface{}{arg.ID}, set.args...)
	return scanBill(q.db.QueryRow(ctx, sql, args...))
}

type BackfillClosedByParams struct {
	ID           int64
	ClosedByID   string
	ClosedByName pgtype.Text
}

// BackfillClosedBy stamps closed_by on a bill that has none yet.
func (q *Queries) BackfillClosedBy(ctx context.Context, arg BackfillClosedByParams) (Bill, error) {
	if !q.billCols.ClosedByID {
		return Bill{}, ErrColumnUnsupported
	}
	assignments := "closed_by_id = $2"
	args := []interface{}{arg.ID, arg.ClosedByID}
	if q.billCols.ClosedByName {
		assignments += ", closed_by_name = $3"
		args = append(args, arg.ClosedByName)
	}
	sql := "UPDATE bills SET " + assignments +
		" WHERE bill_id = $1 AND closed_by_id IS NULL RETURNING " + q.billCols.selectList()
	return scanBill(q.db.QueryRow(ctx, sql, args...))
}

type ListBillsParams struct {
	Status    pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListBills(ctx context.Context, arg ListBillsParams) ([]Bill, error) {
	sql := "SELECT " + q.billCols.selectList() + ` FROM bills
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at DESC, bill_id DESC
LIMIT $4 OFFSET $5`
	rows, err := q.db.Query(ctx, sql, arg.Status, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const billItemColumns = `bill_item_id, bill_id, menu_id, qty, price`

const createBillItem = `
INSERT INTO bill_items (bill_id, menu_id, qty, price)
VALUES ($1, $2, $3, $4)
RETURNING ` + billItemColumns

type CreateBillItemParams struct {
	BillID int64
	MenuID int64
	Qty    int32
	Price  pgtype.Numeric
}

func (q *Queries) CreateBillItem(ctx context.Context, arg CreateBillItemParams) (BillItem, error) {
	var i BillItem
	err := q.db.QueryRow(ctx, createBillItem, arg.BillID, arg.MenuID, arg.Qty, arg.Price).
		Scan(&i.ID, &i.BillID, &i.MenuID, &i.Qty, &i.Price)
	return i, err
}

const listBillItems = `SELECT ` + billItemColumns + ` FROM bill_items WHERE bill_id = $1 ORDER BY bill_item_id`

func (q *Queries) ListBillItems(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := q.db.Query(ctx, listBillItems, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BillItem{}
	for rows.Next() {
		var i BillItem
		if err := rows.Scan(&i.ID, &i.BillID, &i.MenuID, &i.Qty, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
