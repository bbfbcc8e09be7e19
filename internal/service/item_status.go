package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
)

// itemTransitions is the kitchen flow. SERVED and CANCELLED are final.
var itemTransitions = map[string][]string{
	enum.OrderItemStatusPending:   {enum.OrderItemStatusPreparing, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusPreparing: {enum.OrderItemStatusReady, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusReady:     {enum.OrderItemStatusServed, enum.OrderItemStatusCancelled},
}

// CanTransition reports whether an item may move from cur to next. Quick-serve
// menu entries (drinks, ready-made desserts) may skip the kitchen and go
// straight from PENDING to READY.
func CanTransition(cur, next string, quickServe bool) bool {
	if quickServe && cur == enum.OrderItemStatusPending && next == enum.OrderItemStatusReady {
		return true
	}
	for _, s := range itemTransitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}

// ItemStatusResult is the updated item and its re-priced order.
type ItemStatusResult struct {
	Item  database.OrderItem
	Order database.Order
}

// UpdateItemStatus moves one item along the kitchen flow. The write is
// conditional on the status read, so two screens racing on the same item
// cannot both win.
func (s *OrderService) UpdateItemStatus(ctx context.Context, itemID int64, next string) (*ItemStatusResult, error) {
	if !enum.IsOrderItemStatus(next) {
		return nil, ErrInvalidItemStatus
	}

	var out ItemStatusResult
	err := s.withTx(ctx, func(store OrderStore) error {
		item, order, err := loadOpenItem(ctx, store, itemID)
		if err != nil {
			return err
		}
		menu, err := store.GetMenu(ctx, item.MenuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMenuNotFound
			}
			return fmt.Errorf("get menu: %w", err)
		}
		if !CanTransition(item.Status, next, menu.QuickServe) {
			return fmt.Errorf("%w: %s to %s", ErrItemTransition, item.Status, next)
		}

		out.Item, err = store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
			ID:         item.ID,
			Status:     next,
			PrevStatus: item.Status,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemStatusChanged
			}
			return fmt.Errorf("update item status: %w", err)
		}

		out.Order = order
		if next == enum.OrderItemStatusCancelled {
			out.Order, _, _, err = recalcTotal(ctx, store, order.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
