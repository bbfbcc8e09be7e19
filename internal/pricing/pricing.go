// Package pricing holds the two line shapes of the floor engine.
//
// An open order is priced live: its lines carry no price of their own and are
// valued with whatever the menu catalog says now, so a catalog change moves an
// open order's total. A closed bill is priced frozen: each line keeps the price
// it was billed at forever.
package pricing

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/shopspring/decimal"
)

// LiveLine is an order item valued at the catalog's current price.
type LiveLine struct {
	OrderItemID  int64
	MenuID       int64
	Name         string
	Qty          int32
	Status       string
	CatalogPrice decimal.Decimal
}

// Active reports whether the line still counts toward the order total.
func (l LiveLine) Active() bool {
	return l.Status != enum.OrderItemStatusCancelled
}

// Amount is qty × current catalog price, zero for cancelled lines.
func (l LiveLine) Amount() decimal.Decimal {
	if !l.Active() {
		return decimal.Zero
	}
	return l.CatalogPrice.Mul(decimal.NewFromInt32(l.Qty))
}

// FrozenLine is a billed line whose price was captured at checkout.
type FrozenLine struct {
	MenuID int64
	Qty    int32
	Price  decimal.Decimal
}

func (l FrozenLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt32(l.Qty))
}

// OrderTotal sums the live amount of every non-cancelled line.
func OrderTotal(lines []LiveLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// BillTotal sums frozen lines.
func BillTotal(lines []FrozenLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// NumericToDecimal converts a pgtype.Numeric, treating NULL and junk as zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric rounds to cents for storage.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
