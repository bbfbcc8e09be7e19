package database

import (
	"context"
	"fmt"
)

// BillColumns records which optional bills columns the connected schema has.
// Older deployments lack some of them; statements built from a BillColumns
// skip absent columns on write and read them back as NULL.
type BillColumns struct {
	VoidReason   bool
	Remark       bool
	ClosedByID   bool
	ClosedByName bool
	CashReceived bool
	ChangeAmount bool
}

// FullBillColumns is the capability set of the bundled migrations.
func FullBillColumns() BillColumns {
	return BillColumns{
		VoidReason:   true,
		Remark:       true,
		ClosedByID:   true,
		ClosedByName: true,
		CashReceived: true,
		ChangeAmount: true,
	}
}

const probeBillColumns = `
SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = 'bills'`

// ProbeBillColumns inspects the bills table once so request paths never
// query catalog metadata.
func ProbeBillColumns(ctx context.Context, db DBTX) (BillColumns, error) {
	rows, err := db.Query(ctx, probeBillColumns)
	if err != nil {
		return BillColumns{}, fmt.Errorf("probe bills columns: %w", err)
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return BillColumns{}, fmt.Errorf("scan column name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return BillColumns{}, fmt.Errorf("probe bills columns: %w", err)
	}

	for _, required := range []string{"bill_id", "table_id", "total_price", "payment_type", "status", "created_at"} {
		if !present[required] {
			return BillColumns{}, fmt.Errorf("bills table is missing required column %q", required)
		}
	}

	return BillColumns{
		VoidReason:   present["void_reason"],
		Remark:       present["remark"],
		ClosedByID:   present["closed_by_id"],
		ClosedByName: present["closed_by_name"],
		CashReceived: present["cash_received"],
		ChangeAmount: present["change_amount"],
	}, nil
}

func (c BillColumns) selectList() string {
	col := func(ok bool, name, typ string) string {
		if ok {
			return name
		}
		return "NULL::" + typ + " AS " + name
	}
	return "bill_id, table_id, total_price, payment_type, status, " +
		col(c.VoidReason, "void_reason", "text") + ", " +
		col(c.Remark, "remark", "text") + ", " +
		col(c.ClosedByID, "closed_by_id", "text") + ", " +
		col(c.ClosedByName, "closed_by_name", "text") + ", " +
		col(c.CashReceived, "cash_received", "numeric") + ", " +
		col(c.ChangeAmount, "change_amount", "numeric") + ", " +
		"created_at"
}
