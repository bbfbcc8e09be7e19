package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/pricing"
	"github.com/shopspring/decimal"
)

// BillingStore defines the DB methods needed to close, void and reissue bills.
// Satisfied by *database.Queries (and its WithTx variant).
type BillingStore interface {
	tableLocker
	groupLocker
	LockTakeawayIdentity(ctx context.Context, customerName string) error
	ListOpenDineInOrders(ctx context.Context, tableNumbers []int32) ([]database.Order, error)
	ListOpenTakeawayOrders(ctx context.Context, customerName string) ([]database.Order, error)
	SummarizeActiveLines(ctx context.Context, orderIDs []int64) ([]database.MenuQtyRow, error)
	GetMenusByIDs(ctx context.Context, ids []int64) ([]database.Menu, error)
	MarkOrdersPaid(ctx context.Context, ids []int64) (int64, error)
	ResetTables(ctx context.Context, ids []int64) (int64, error)
	InsertBill(ctx context.Context, arg database.InsertBillParams) (database.Bill, error)
	CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error)
	GetBill(ctx context.Context, id int64) (database.Bill, error)
	LockBill(ctx context.Context, id int64) (database.Bill, error)
	VoidBill(ctx context.Context, arg database.VoidBillParams) (database.Bill, error)
	BackfillClosedBy(ctx context.Context, arg database.BackfillClosedByParams) (database.Bill, error)
	ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error)
	ListBillItems(ctx context.Context, billID int64) ([]database.BillItem, error)
}

// NewBillingStore creates a BillingStore from a DBTX (pool or tx).
type NewBillingStore func(db database.DBTX) BillingStore

// StaffDirectory resolves a staff id to the name printed on bills.
type StaffDirectory interface {
	DisplayName(ctx context.Context, staffID uuid.UUID) (string, error)
}

// BillItemInput is one billed line. Price is only honoured on reissue; a
// checkout always prices from the catalog.
type BillItemInput struct {
	MenuID int64
	Qty    int32
	Price  decimal.Decimal
}

// CloseBillRequest checks out a table (with its merge group) or a takeaway
// customer. With no Items the bill is built from the orders' active lines.
type CloseBillRequest struct {
	TableRef     string
	CustomerName string
	Items        []BillItemInput
	PaymentType  string
	CashReceived decimal.Decimal
	Remark       string
	Status       string
	VoidReason   string
	ClosedBy     uuid.UUID
}

// ReissueBillRequest voids a bill and replaces it with a corrected one.
type ReissueBillRequest struct {
	BillID      int64
	Reason      string
	Items       []BillItemInput
	PaymentType string
	TotalPrice  decimal.Decimal
	StaffID     uuid.UUID
}

// BillResult is a bill with its frozen lines.
type BillResult struct {
	Bill  database.Bill
	Items []database.BillItem
	// PaidOrders and ClearedTables are only set by CloseBill.
	PaidOrders    []int64
	ClearedTables []database.Table
}

// ReissueResult carries both the voided original and its replacement.
type ReissueResult struct {
	Voided database.Bill
	Bill   database.Bill
	Items  []database.BillItem
}

// ListBillsRequest filters bill history.
type ListBillsRequest struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int32
	Offset int32
}

// BillingService turns open orders into frozen bills.
type BillingService struct {
	pool     TxBeginner
	newStore NewBillingStore
	staff    StaffDirectory
}

// NewBillingService creates a BillingService. staff may be nil, in which
// case bills carry the staff id as the closer's name.
func NewBillingService(pool TxBeginner, newStore NewBillingStore, staff StaffDirectory) *BillingService {
	return &BillingService{pool: pool, newStore: newStore, staff: staff}
}

func (s *BillingService) withTx(ctx context.Context, fn func(store BillingStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// closer returns the closed_by columns for staffID. A failed name lookup
// does not block a checkout; the id stands in for the name.
func (s *BillingService) closer(ctx context.Context, staffID uuid.UUID) (pgtype.Text, pgtype.Text) {
	if staffID == uuid.Nil {
		return pgtype.Text{}, pgtype.Text{}
	}
	id := staffID.String()
	name := id
	if s.staff != nil {
		n, err := s.staff.DisplayName(ctx, staffID)
		if err != nil {
			slog.WarnContext(ctx, "staff name lookup failed", "staff_id", id, "error", err)
		} else if n != "" {
			name = n
		}
	}
	return pgtype.Text{String: id, Valid: true}, pgtype.Text{String: name, Valid: true}
}

// CloseBill checks out every unpaid order of a table group or takeaway
// customer in one transaction: it writes the bill and its frozen lines,
// marks the orders paid and empties the tables.
func (s *BillingService) CloseBill(ctx context.Context, req CloseBillRequest) (*BillResult, error) {
	status := req.Status
	if status == "" {
		status = enum.BillStatusCompleted
	}
	if !enum.IsBillStatus(status) {
		return nil, ErrInvalidBillStatus
	}
	voidReason := strings.TrimSpace(req.VoidReason)
	if status == enum.BillStatusVoid && voidReason == "" {
		return nil, ErrVoidReasonRequired
	}
	customer := strings.TrimSpace(req.CustomerName)
	if strings.TrimSpace(req.TableRef) == "" && customer == "" {
		return nil, ErrMissingIdentity
	}
	if !enum.IsPaymentType(req.PaymentType) {
		return nil, ErrInvalidPaymentType
	}
	for _, it := range req.Items {
		if it.MenuID <= 0 {
			return nil, ErrInvalidMenuID
		}
		if it.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.CashReceived.IsNegative() {
		return nil, ErrInvalidAmount
	}

	closedByID, closedByName := s.closer(ctx, req.ClosedBy)

	var out BillResult
	err := s.withTx(ctx, func(store BillingStore) error {
		var (
			tables []database.Table
			orders []database.Order
			anchor pgtype.Int8
			err    error
		)
		if strings.TrimSpace(req.TableRef) != "" {
			t, err := resolveAndLock(ctx, store, req.TableRef)
			if err != nil {
				return err
			}
			anchor = pgtype.Int8{Int64: t.ID, Valid: true}
			tables, err = groupTables(ctx, store, t)
			if err != nil {
				return err
			}
			orders, err = store.ListOpenDineInOrders(ctx, tableNumbers(tables))
			if err != nil {
				return fmt.Errorf("list open orders: %w", err)
			}
		} else {
			if err := store.LockTakeawayIdentity(ctx, customer); err != nil {
				return fmt.Errorf("lock takeaway customer: %w", err)
			}
			orders, err = store.ListOpenTakeawayOrders(ctx, customer)
			if err != nil {
				return fmt.Errorf("list takeaway orders: %w", err)
			}
		}
		if len(orders) == 0 {
			return ErrNoOpenOrder
		}
		ids := orderIDs(orders)

		lines, err := checkoutLines(ctx, store, ids, req.Items)
		if err != nil {
			return err
		}

		total := pricing.BillTotal(lines)
		params := database.InsertBillParams{
			TableID:      anchor,
			PaymentType:  req.PaymentType,
			Status:       status,
			Remark:       checkoutRemark(req.Remark, tables),
			ClosedByID:   closedByID,
			ClosedByName: closedByName,
		}
		if status == enum.BillStatusVoid {
			total = decimal.Zero
			params.VoidReason = pgtype.Text{String: voidReason, Valid: true}
		} else if req.PaymentType == enum.PaymentTypeCash {
			cash := req.CashReceived
			if !cash.IsPositive() {
				return ErrInvalidAmount
			}
			if cash.LessThan(total) {
				return ErrInsufficientCash
			}
			params.CashReceived = pricing.DecimalToNumeric(cash)
			params.ChangeAmount = pricing.DecimalToNumeric(cash.Sub(total))
		}
		params.TotalPrice = pricing.DecimalToNumeric(total)

		out.Bill, err = store.InsertBill(ctx, params)
		if err != nil {
			return fmt.Errorf("insert bill: %w", err)
		}
		out.Items, err = insertBillItems(ctx, store, out.Bill.ID, lines)
		if err != nil {
			return err
		}

		paid, err := store.MarkOrdersPaid(ctx, ids)
		if err != nil {
			return fmt.Errorf("mark orders paid: %w", err)
		}
		if paid != int64(len(ids)) {
			return ErrCheckoutConflict
		}
		out.PaidOrders = ids

		if len(tables) > 0 {
			tableIDs := make([]int64, len(tables))
			for i, t := range tables {
				tableIDs[i] = t.ID
			}
			if _, err := store.ResetTables(ctx, tableIDs); err != nil {
				return fmt.Errorf("reset tables: %w", err)
			}
			out.ClearedTables = tables
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// checkoutLines prices the billed lines from the current catalog. With no
// explicit items the active lines of the orders are summed per menu entry.
func checkoutLines(ctx context.Context, store BillingStore, orderIDs []int64, items []BillItemInput) ([]pricing.FrozenLine, error) {
	if len(items) == 0 {
		rows, err := store.SummarizeActiveLines(ctx, orderIDs)
		if err != nil {
			return nil, fmt.Errorf("summarize order lines: %w", err)
		}
		if len(rows) == 0 {
			return nil, ErrEmptyItems
		}
		lines := make([]pricing.FrozenLine, len(rows))
		for i, r := range rows {
			lines[i] = pricing.FrozenLine{MenuID: r.MenuID, Qty: int32(r.Qty), Price: pricing.NumericToDecimal(r.Price)}
		}
		return lines, nil
	}

	menus, err := menuIndex(ctx, store, items)
	if err != nil {
		return nil, err
	}
	lines := make([]pricing.FrozenLine, len(items))
	for i, it := range items {
		lines[i] = pricing.FrozenLine{MenuID: it.MenuID, Qty: it.Qty, Price: pricing.NumericToDecimal(menus[it.MenuID].Price)}
	}
	return lines, nil
}

func menuIndex(ctx context.Context, store BillingStore, items []BillItemInput) (map[int64]database.Menu, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuID)
	}
	menus, err := store.GetMenusByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get menus: %w", err)
	}
	byID := make(map[int64]database.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: menu #%d", ErrMenuNotFound, id)
		}
	}
	return byID, nil
}

func insertBillItems(ctx context.Context, store BillingStore, billID int64, lines []pricing.FrozenLine) ([]database.BillItem, error) {
	items := make([]database.BillItem, 0, len(lines))
	for _, l := range lines {
		it, err := store.CreateBillItem(ctx, database.CreateBillItemParams{
			BillID: billID,
			MenuID: l.MenuID,
			Qty:    l.Qty,
			Price:  pricing.DecimalToNumeric(l.Price),
		})
		if err != nil {
			return nil, fmt.Errorf("create bill item: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

// checkoutRemark appends the merged table numbers to the cashier's remark.
func checkoutRemark(remark string, tables []database.Table) pgtype.Text {
	remark = strings.TrimSpace(remark)
	if len(tables) > 1 {
		nums := tableNumbers(tables)
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = strconv.Itoa(int(n))
		}
		merged := "Merged tables: " + strings.Join(parts, ", ")
		if remark == "" {
			remark = merged
		} else {
			remark = remark + " | " + merged
		}
	}
	return pgtype.Text{String: remark, Valid: remark != ""}
}

// VoidBill voids a completed bill. Its lines stay for audit; the total drops
// to zero.
func (s *BillingService) VoidBill(ctx context.Context, billID int64, reason string, staffID uuid.UUID) (database.Bill, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return database.Bill{}, ErrVoidReasonRequired
	}
	closedByID, closedByName := s.closer(ctx, staffID)

	var out database.Bill
	err := s.withTx(ctx, func(store BillingStore) error {
		var err error
		out, err = voidLocked(ctx, store, billID, reason, closedByID, closedByName)
		return err
	})
	if err != nil {
		return database.Bill{}, err
	}
	return out, nil
}

func voidLocked(ctx context.Context, store BillingStore, billID int64, reason string, closedByID, closedByName pgtype.Text) (database.Bill, error) {
	bill, err := store.LockBill(ctx, billID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Bill{}, ErrBillNotFound
		}
		return database.Bill{}, fmt.Errorf("lock bill: %w", err)
	}
	if bill.Status == enum.BillStatusVoid {
		return database.Bill{}, ErrBillAlreadyVoid
	}

	voided, err := store.VoidBill(ctx, database.VoidBillParams{
		ID:           bill.ID,
		VoidReason:   reason,
		ClosedByID:   closedByID,
		ClosedByName: closedByName,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Bill{}, ErrBillAlreadyVoid
		}
		return database.Bill{}, fmt.Errorf("void bill: %w", err)
	}
	return voided, nil
}

// ReissueBill voids a bill and writes its replacement in one transaction.
// The replacement keeps the original's table and remark; lines, total and
// payment type come from the request.
func (s *BillingService) ReissueBill(ctx context.Context, req ReissueBillRequest) (*ReissueResult, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrVoidReasonRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.MenuID <= 0 {
			return nil, ErrInvalidMenuID
		}
		if it.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.Price.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}
	if req.TotalPrice.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if !enum.IsPaymentType(req.PaymentType) {
		return nil, ErrInvalidPaymentType
	}
	closedByID, closedByName := s.closer(ctx, req.StaffID)

	var out ReissueResult
	err := s.withTx(ctx, func(store BillingStore) error {
		voided, err := voidLocked(ctx, store, req.BillID, reason, closedByID, closedByName)
		if err != nil {
			return err
		}
		out.Voided = voided

		if _, err := menuIndex(ctx, store, req.Items); err != nil {
			return err
		}

		out.Bill, err = store.InsertBill(ctx, database.InsertBillParams{
			TableID:      voided.TableID,
			TotalPrice:   pricing.DecimalToNumeric(req.TotalPrice),
			PaymentType:  req.PaymentType,
			Status:       enum.BillStatusCompleted,
			Remark:       voided.Remark,
			ClosedByID:   closedByID,
			ClosedByName: closedByName,
		})
		if err != nil {
			return fmt.Errorf("insert replacement bill: %w", err)
		}

		lines := make([]pricing.FrozenLine, len(req.Items))
		for i, it := range req.Items {
			lines[i] = pricing.FrozenLine{MenuID: it.MenuID, Qty: it.Qty, Price: it.Price}
		}
		out.Items, err = insertBillItems(ctx, store, out.Bill.ID, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BackfillClosedBy stamps the closer on a bill that was saved without one.
func (s *BillingService) BackfillClosedBy(ctx context.Context, billID int64, staffID uuid.UUID) (database.Bill, error) {
	if staffID == uuid.Nil {
		return database.Bill{}, ErrMissingStaff
	}
	closedByID, closedByName := s.closer(ctx, staffID)

	var out database.Bill
	err := s.withTx(ctx, func(store BillingStore) error {
		bill, err := store.LockBill(ctx, billID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBillNotFound
			}
			return fmt.Errorf("lock bill: %w", err)
		}
		if bill.ClosedByID.Valid {
			return ErrClosedByAlreadySet
		}

		out, err = store.BackfillClosedBy(ctx, database.BackfillClosedByParams{
			ID:           billID,
			ClosedByID:   closedByID.String,
			ClosedByName: closedByName,
		})
		switch {
		case errors.Is(err, database.ErrColumnUnsupported):
			return ErrClosedByUnsupported
		case errors.Is(err, pgx.ErrNoRows):
			return ErrClosedByAlreadySet
		case err != nil:
			return fmt.Errorf("backfill closed_by: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.Bill{}, err
	}
	return out, nil
}

// GetBill returns a bill with its frozen lines.
func (s *BillingService) GetBill(ctx context.Context, billID int64) (*BillResult, error) {
	var out BillResult
	err := s.withTx(ctx, func(store BillingStore) error {
		var err error
		out.Bill, err = store.GetBill(ctx, billID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBillNotFound
			}
			return fmt.Errorf("get bill: %w", err)
		}
		out.Items, err = store.ListBillItems(ctx, billID)
		if err != nil {
			return fmt.Errorf("list bill items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBills returns bills newest first.
func (s *BillingService) ListBills(ctx context.Context, req ListBillsRequest) ([]database.Bill, error) {
	if req.Status != "" && !enum.IsBillStatus(req.Status) {
		return nil, ErrInvalidBillStatus
	}
	params := database.ListBillsParams{
		Status: pgtype.Text{String: req.Status, Valid: req.Status != ""},
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if !req.From.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: req.From, Valid: true}
	}
	if !req.To.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: req.To, Valid: true}
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	var out []database.Bill
	err := s.withTx(ctx, func(store BillingStore) error {
		var err error
		out, err = store.ListBills(ctx, params)
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	return out, err
}
