package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
)

// AdjustItemRequest changes the quantity of one menu entry across a set of
// open orders. The orders are picked from OrderIDs when given, otherwise
// from the table (and its merge group), otherwise from the takeaway name.
type AdjustItemRequest struct {
	OrderIDs     []int64
	TableRef     string
	CustomerName string
	MenuID       int64
	Delta        int32
}

// AdjustResult lists every line that changed and the re-priced orders.
type AdjustResult struct {
	Items  []database.OrderItem
	Orders []database.Order
}

// AdjustItem applies a signed quantity change.
//
// A decrement walks the matching active lines newest first: a line with more
// than what is left to remove is reduced, any other line is cancelled, until
// the full amount is gone. Asking for more than the active total fails
// without touching anything.
//
// An increment grows the newest matching active line in the latest order, or
// adds a new SERVED line there, since extras asked for at the table have
// already reached the guest.
func (s *OrderService) AdjustItem(ctx context.Context, req AdjustItemRequest) (*AdjustResult, error) {
	if req.MenuID <= 0 {
		return nil, ErrInvalidMenuID
	}
	if req.Delta == 0 {
		return nil, ErrZeroDelta
	}
	delta := int64(req.Delta)
	if delta > MaxLineQty || delta < -MaxLineQty {
		return nil, ErrQuantityTooLarge
	}
	if len(req.OrderIDs) == 0 && strings.TrimSpace(req.TableRef) == "" && strings.TrimSpace(req.CustomerName) == "" {
		return nil, ErrMissingIdentity
	}

	var out AdjustResult
	err := s.withTx(ctx, func(store OrderStore) error {
		orders, err := candidateOrders(ctx, store, req)
		if err != nil {
			return err
		}

		if delta < 0 {
			out.Items, err = reduceItems(ctx, store, orderIDs(orders), req.MenuID, -delta)
		} else {
			var item database.OrderItem
			item, err = growItem(ctx, store, orders[len(orders)-1].ID, req.MenuID, delta)
			out.Items = []database.OrderItem{item}
		}
		if err != nil {
			return err
		}

		touched := make(map[int64]bool)
		for _, it := range out.Items {
			touched[it.OrderID] = true
		}
		for _, o := range orders {
			if !touched[o.ID] {
				continue
			}
			order, _, _, err := recalcTotal(ctx, store, o.ID)
			if err != nil {
				return err
			}
			out.Orders = append(out.Orders, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// candidateOrders returns the unpaid orders an adjustment may touch, oldest first.
func candidateOrders(ctx context.Context, store OrderStore, req AdjustItemRequest) ([]database.Order, error) {
	var orders []database.Order

	switch {
	case len(req.OrderIDs) > 0:
		for _, id := range req.OrderIDs {
			o, err := store.GetOrder(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, ErrOrderNotFound
				}
				return nil, fmt.Errorf("get order: %w", err)
			}
			if o.Paid {
				return nil, ErrOrderPaid
			}
			orders = append(orders, o)
		}

	case strings.TrimSpace(req.TableRef) != "":
		t, err := resolveAndLock(ctx, store, req.TableRef)
		if err != nil {
			return nil, err
		}
		tables, err := groupTables(ctx, store, t)
		if err != nil {
			return nil, err
		}
		orders, err = store.ListOpenDineInOrders(ctx, tableNumbers(tables))
		if err != nil {
			return nil, fmt.Errorf("list open orders: %w", err)
		}

	default:
		name := strings.TrimSpace(req.CustomerName)
		if err := store.LockTakeawayIdentity(ctx, name); err != nil {
			return nil, fmt.Errorf("lock takeaway customer: %w", err)
		}
		var err error
		orders, err = store.ListOpenTakeawayOrders(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list takeaway orders: %w", err)
		}
	}

	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func reduceItems(ctx context.Context, store OrderStore, ids []int64, menuID int64, amount int64) ([]database.OrderItem, error) {
	items, err := store.ListActiveItemsForMenu(ctx, database.ListActiveItemsForMenuParams{
		OrderIDs: ids,
		MenuID:   menuID,
	})
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}

	var active int64
	for _, it := range items {
		active += int64(it.Qty)
	}
	if active == 0 {
		return nil, ErrNothingToReduce
	}
	if amount > active {
		return nil, ErrDecrementExceeds
	}

	// Newest first, as returned by the store.
	var changed []database.OrderItem
	remaining := amount
	for _, it := range items {
		if remaining == 0 {
			break
		}
		if int64(it.Qty) > remaining {
			updated, err := store.SetOrderItemQty(ctx, database.SetOrderItemQtyParams{ID: it.ID, Qty: int32(int64(it.Qty) - remaining)})
			if err != nil {
				return nil, fmt.Errorf("reduce item qty: %w", err)
			}
			changed = append(changed, updated)
			remaining = 0
			break
		}
		updated, err := store.CancelOrderItem(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("cancel item: %w", err)
		}
		changed = append(changed, updated)
		remaining -= int64(it.Qty)
	}
	return changed, nil
}

func growItem(ctx context.Context, store OrderStore, orderID, menuID int64, amount int64) (database.OrderItem, error) {
	items, err := store.ListActiveItemsForMenu(ctx, database.ListActiveItemsForMenuParams{
		OrderIDs: []int64{orderID},
		MenuID:   menuID,
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("list active items: %w", err)
	}
	if len(items) > 0 {
		it := items[0]
		qty := int64(it.Qty) + amount
		if qty > MaxLineQty {
			return database.OrderItem{}, ErrQuantityTooLarge
		}
		updated, err := store.SetOrderItemQty(ctx, database.SetOrderItemQtyParams{ID: it.ID, Qty: int32(qty)})
		if err != nil {
			return database.OrderItem{}, fmt.Errorf("grow item qty: %w", err)
		}
		return updated, nil
	}

	menu, err := store.GetMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrMenuNotFound
		}
		return database.OrderItem{}, fmt.Errorf("get menu: %w", err)
	}
	if !menu.Available {
		return database.OrderItem{}, &MenuUnavailableError{Names: []string{menu.Name}}
	}

	item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID: orderID,
		MenuID:  menuID,
		Qty:     int32(amount),
		Status:  enum.OrderItemStatusServed,
	})
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("create order item: %w", err)
	}
	return item, nil
}
