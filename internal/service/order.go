package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/pricing"
	"github.com/shopspring/decimal"
)

// OrderStore defines the DB methods needed for the order session.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	tableLocker
	groupLocker
	OccupyTable(ctx context.Context, id int64) (database.Table, error)
	IncrementTableOrderCount(ctx context.Context, id int64) (database.Table, error)
	LockTakeawayIdentity(ctx context.Context, customerName string) error
	FindOpenDineInOrder(ctx context.Context, tableNumber int32) (database.Order, error)
	FindOpenTakeawayOrder(ctx context.Context, customerName string) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOpenDineInOrders(ctx context.Context, tableNumbers []int32) ([]database.Order, error)
	ListOpenTakeawayOrders(ctx context.Context, customerName string) ([]database.Order, error)
	ListOpenOrders(ctx context.Context) ([]database.Order, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	GetMenu(ctx context.Context, id int64) (database.Menu, error)
	GetMenusByIDs(ctx context.Context, ids []int64) ([]database.Menu, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id int64) (database.OrderItem, error)
	ListActiveItemsForMenu(ctx context.Context, arg database.ListActiveItemsForMenuParams) ([]database.OrderItem, error)
	SetOrderItemQty(ctx context.Context, arg database.SetOrderItemQtyParams) (database.OrderItem, error)
	CancelOrderItem(ctx context.Context, id int64) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id int64) error
	ListLiveLines(ctx context.Context, orderID int64) ([]database.LiveLineRow, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItemInput is one requested line.
type OrderItemInput struct {
	MenuID int64
	Qty    int32
	Note   string
}

// SubmitOrderRequest places items for a dine-in table or a takeaway customer.
type SubmitOrderRequest struct {
	OrderType     string
	TableRef      string
	CustomerName  string
	CustomerPhone string
	Items         []OrderItemInput
}

// AppendOrderRequest adds items to a table's already open order.
type AppendOrderRequest struct {
	TableRef string
	Items    []OrderItemInput
}

// OrderResult is an order with its lines valued at current catalog prices.
type OrderResult struct {
	Order database.Order
	Lines []pricing.LiveLine
	Total decimal.Decimal
	// Opened is true when this call created the order.
	Opened bool
	Table  *database.Table
}

// OrderService handles the order session, quantity adjustment and item status.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

func (s *OrderService) withTx(ctx context.Context, fn func(store OrderStore) error) error {
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

// SubmitOrder finds the open order for the table (or takeaway customer) and
// appends the items to it, creating the order if none is open. New items
// start PENDING. Any unavailable menu entry rejects the whole request.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*OrderResult, error) {
	orderType := req.OrderType
	if orderType == "" {
		orderType = enum.OrderTypeDineIn
	}
	if !enum.IsOrderType(orderType) {
		return nil, ErrInvalidOrderType
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	customer := strings.TrimSpace(req.CustomerName)
	switch orderType {
	case enum.OrderTypeDineIn:
		if strings.TrimSpace(req.TableRef) == "" {
			return nil, ErrMissingTable
		}
	case enum.OrderTypeTakeaway:
		if customer == "" {
			return nil, ErrMissingCustomer
		}
	}

	var out OrderResult
	err := s.withTx(ctx, func(store OrderStore) error {
		if err := checkAvailability(ctx, store, req.Items); err != nil {
			return err
		}

		var (
			order database.Order
			err   error
		)
		if orderType == enum.OrderTypeDineIn {
			order, err = s.openDineIn(ctx, store, req.TableRef, &out)
		} else {
			order, err = s.openTakeaway(ctx, store, customer, strings.TrimSpace(req.CustomerPhone), &out)
		}
		if err != nil {
			return err
		}

		if err := insertItems(ctx, store, order.ID, req.Items); err != nil {
			return err
		}
		return recalcInto(ctx, store, order.ID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *OrderService) openDineIn(ctx context.Context, store OrderStore, ref string, out *OrderResult) (database.Order, error) {
	t, err := resolveAndLock(ctx, store, ref)
	if err != nil {
		return database.Order{}, err
	}

	order, err := store.FindOpenDineInOrder(ctx, t.Number)
	if err == nil {
		out.Table = &t
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("find open order: %w", err)
	}

	order, err = store.CreateOrder(ctx, database.CreateOrderParams{
		TableNumber: t.Number,
		OrderType:   enum.OrderTypeDineIn,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}
	t, err = store.OccupyTable(ctx, t.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("occupy table: %w", err)
	}
	out.Table = &t
	out.Opened = true
	return order, nil
}

func (s *OrderService) openTakeaway(ctx context.Context, store OrderStore, name, phone string, out *OrderResult) (database.Order, error) {
	if err := store.LockTakeawayIdentity(ctx, name); err != nil {
		return database.Order{}, fmt.Errorf("lock takeaway customer: %w", err)
	}

	order, err := store.FindOpenTakeawayOrder(ctx, name)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("find open takeaway order: %w", err)
	}

	order, err = store.CreateOrder(ctx, database.CreateOrderParams{
		TableNumber:   enum.TakeawayTableNumber,
		OrderType:     enum.OrderTypeTakeaway,
		CustomerName:  pgtype.Text{String: name, Valid: true},
		CustomerPhone: pgtype.Text{String: phone, Valid: phone != ""},
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create takeaway order: %w", err)
	}
	out.Opened = true
	return order, nil
}

// AppendToOrder adds a follow-up round to the table's open order and bumps
// the table's order count.
func (s *OrderService) AppendToOrder(ctx context.Context, req AppendOrderRequest) (*OrderResult, error) {
	if strings.TrimSpace(req.TableRef) == "" {
		return nil, ErrMissingTable
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	var out OrderResult
	err := s.withTx(ctx, func(store OrderStore) error {
		if err := checkAvailability(ctx, store, req.Items); err != nil {
			return err
		}

		t, err := resolveAndLock(ctx, store, req.TableRef)
		if err != nil {
			return err
		}
		order, err := store.FindOpenDineInOrder(ctx, t.Number)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoOpenOrder
			}
			return fmt.Errorf("find open order: %w", err)
		}

		if err := insertItems(ctx, store, order.ID, req.Items); err != nil {
			return err
		}
		t, err = store.IncrementTableOrderCount(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("increment order count: %w", err)
		}
		out.Table = &t
		return recalcInto(ctx, store, order.ID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder returns an order with its lines at current catalog prices.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*OrderResult, error) {
	var out OrderResult
	err := s.withTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		rows, err := store.ListLiveLines(ctx, id)
		if err != nil {
			return fmt.Errorf("list order lines: %w", err)
		}
		out.Order = order
		out.Lines = toLiveLines(rows)
		out.Total = pricing.OrderTotal(out.Lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOpenOrders returns every unpaid order, dine-in and takeaway.
func (s *OrderService) ListOpenOrders(ctx context.Context) ([]database.Order, error) {
	var out []database.Order
	err := s.withTx(ctx, func(store OrderStore) error {
		var err error
		out, err = store.ListOpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("list open orders: %w", err)
		}
		return nil
	})
	return out, err
}

// DeleteItem removes a line outright. Kitchen screens use this for lines
// entered by mistake; normal reductions go through AdjustItem.
func (s *OrderService) DeleteItem(ctx context.Context, itemID int64) (*OrderResult, error) {
	var out OrderResult
	err := s.withTx(ctx, func(store OrderStore) error {
		item, order, err := loadOpenItem(ctx, store, itemID)
		if err != nil {
			return err
		}
		if err := store.DeleteOrderItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}
		return recalcInto(ctx, store, order.ID, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MaxLineQty caps the quantity a single order line can reach.
const MaxLineQty = 999

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range items {
		if it.MenuID <= 0 {
			return ErrInvalidMenuID
		}
		if it.Qty <= 0 {
			return ErrInvalidQuantity
		}
		if it.Qty > MaxLineQty {
			return ErrQuantityTooLarge
		}
	}
	return nil
}

// checkAvailability fails with a MenuUnavailableError naming every requested
// entry that is missing or switched off.
func checkAvailability(ctx context.Context, store OrderStore, items []OrderItemInput) error {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.MenuID] {
			seen[it.MenuID] = true
			ids = append(ids, it.MenuID)
		}
	}

	menus, err := store.GetMenusByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get menus: %w", err)
	}
	byID := make(map[int64]database.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}

	var names []string
	for _, id := range ids {
		m, ok := byID[id]
		switch {
		case !ok:
			names = append(names, fmt.Sprintf("menu #%d", id))
		case !m.Available:
			names = append(names, m.Name)
		}
	}
	if len(names) > 0 {
		return &MenuUnavailableError{Names: names}
	}
	return nil
}

func insertItems(ctx context.Context, store OrderStore, orderID int64, items []OrderItemInput) error {
	for _, it := range items {
		note := strings.TrimSpace(it.Note)
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID: orderID,
			MenuID:  it.MenuID,
			Qty:     it.Qty,
			Note:    pgtype.Text{String: note, Valid: note != ""},
			Status:  enum.OrderItemStatusPending,
		})
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

// recalcTotal re-prices an order from the catalog and stores the result as
// the order's cached total.
func recalcTotal(ctx context.Context, store OrderStore, orderID int64) (database.Order, []pricing.LiveLine, decimal.Decimal, error) {
	rows, err := store.ListLiveLines(ctx, orderID)
	if err != nil {
		return database.Order{}, nil, decimal.Zero, fmt.Errorf("list order lines: %w", err)
	}
	lines := toLiveLines(rows)
	total := pricing.OrderTotal(lines)

	order, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:         orderID,
		TotalPrice: pricing.DecimalToNumeric(total),
	})
	if err != nil {
		return database.Order{}, nil, decimal.Zero, fmt.Errorf("update order total: %w", err)
	}
	return order, lines, total, nil
}

func recalcInto(ctx context.Context, store OrderStore, orderID int64, out *OrderResult) error {
	order, lines, total, err := recalcTotal(ctx, store, orderID)
	if err != nil {
		return err
	}
	out.Order, out.Lines, out.Total = order, lines, total
	return nil
}

// loadOpenItem fetches an item and its order, refusing items on paid orders.
func loadOpenItem(ctx context.Context, store OrderStore, itemID int64) (database.OrderItem, database.Order, error) {
	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, database.Order{}, ErrOrderItemNotFound
		}
		return database.OrderItem{}, database.Order{}, fmt.Errorf("get order item: %w", err)
	}
	order, err := store.GetOrder(ctx, item.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, database.Order{}, ErrOrderNotFound
		}
		return database.OrderItem{}, database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Paid {
		return database.OrderItem{}, database.Order{}, ErrOrderPaid
	}
	return item, order, nil
}
