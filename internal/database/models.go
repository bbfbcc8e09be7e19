package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Menu struct {
	ID         int64
	Name       string
	Price      pgtype.Numeric
	Available  bool
	QuickServe bool
}

type Table struct {
	ID         int64
	Code       pgtype.Text
	Number     int32
	Status     string
	OrderCount int32
	GroupID    pgtype.UUID
}

type Order struct {
	ID            int64
	TableNumber   int32
	OrderType     string
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	TotalPrice    pgtype.Numeric
	Paid          bool
	CreatedAt     time.Time
}

type OrderItem struct {
	ID      int64
	OrderID int64
	MenuID  int64
	Qty     int32
	Note    pgtype.Text
	Status  string
}

type Bill struct {
	ID           int64
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
	CreatedAt    time.Time
}

type BillItem struct {
	ID     int64
	BillID int64
	MenuID int64
	Qty    int32
	Price  pgtype.Numeric
}

// LiveLineRow is an order item joined with the catalog's current price.
type LiveLineRow struct {
	OrderItemID int64
	OrderID     int64
	MenuID      int64
	Name        string
	Qty         int32
	Note        pgtype.Text
	Status      string
	Price       pgtype.Numeric
}

// MenuQtyRow is the active quantity of one menu entry across a set of orders.
type MenuQtyRow struct {
	MenuID int64
	Name   string
	Qty    int64
	Price  pgtype.Numeric
}
