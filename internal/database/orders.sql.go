package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `order_id, table_number, order_type, customer_name, customer_phone, total_price, paid, created_at`

func scanOrder(row scanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TableNumber, &o.OrderType, &o.CustomerName, &o.CustomerPhone,
		&o.TotalPrice, &o.Paid, &o.CreatedAt)
	return o, err
}

func (q *Queries) queryOrders(ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const orderItemColumns = `order_item_id, order_id, menu_id, qty, note, status`

func scanOrderItem(row scanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuID, &i.Qty, &i.Note, &i.Status)
	return i, err
}

func (q *Queries) queryOrderItems(ctx context.Context, sql string, args ...interface{}) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ── Orders ──

const findOpenDineInOrder = `
SELECT ` + orderColumns + ` FROM orders
WHERE table_number = $1 AND order_type = 'DINE_IN' AND paid = false
ORDER BY order_id DESC
LIMIT 1`

func (q *Queries) FindOpenDineInOrder(ctx context.Context, tableNumber int32) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, findOpenDineInOrder, tableNumber))
}

const findOpenTakeawayOrder = `
SELECT ` + orderColumns + ` FROM orders
WHERE customer_name = $1 AND order_type = 'TAKEAWAY' AND paid = false
ORDER BY order_id DESC
LIMIT 1`

func (q *Queries) FindOpenTakeawayOrder(ctx context.Context, customerName string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, findOpenTakeawayOrder, customerName))
}

const lockTakeawayIdentity = `SELECT pg_advisory_xact_lock(hashtext('takeaway:' || $1::text))`

// LockTakeawayIdentity serialises find-or-create for one takeaway customer
// until the surrounding transaction ends.
func (q *Queries) LockTakeawayIdentity(ctx context.Context, customerName string) error {
	_, err := q.db.Exec(ctx, lockTakeawayIdentity, customerName)
	return err
}

const createOrder = `
INSERT INTO orders (table_number, order_type, customer_name, customer_phone)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TableNumber   int32
	OrderType     string
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.TableNumber, arg.OrderType, arg.CustomerName, arg.CustomerPhone))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOpenDineInOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE table_number = ANY($1::int[]) AND order_type = 'DINE_IN' AND paid = false
ORDER BY order_id`

// ListOpenDineInOrders returns unpaid dine-in orders for the given table numbers, oldest first.
func (q *Queries) ListOpenDineInOrders(ctx context.Context, tableNumbers []int32) ([]Order, error) {
	return q.queryOrders(ctx, listOpenDineInOrders, tableNumbers)
}

const listOpenTakeawayOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE customer_name = $1 AND order_type = 'TAKEAWAY' AND paid = false
ORDER BY order_id`

func (q *Queries) ListOpenTakeawayOrders(ctx context.Context, customerName string) ([]Order, error) {
	return q.queryOrders(ctx, listOpenTakeawayOrders, customerName)
}

const listOpenOrders = `SELECT ` + orderColumns + ` FROM orders WHERE paid = false ORDER BY order_id`

func (q *Queries) ListOpenOrders(ctx context.Context) ([]Order, error) {
	return q.queryOrders(ctx, listOpenOrders)
}

const moveOpenOrders = `
UPDATE orders SET table_number = $2
WHERE table_number = $1 AND order_type = 'DINE_IN' AND paid = false`

type MoveOpenOrdersParams struct {
	FromNumber int32
	ToNumber   int32
}

func (q *Queries) MoveOpenOrders(ctx context.Context, arg MoveOpenOrdersParams) (int64, error) {
	tag, err := q.db.Exec(ctx, moveOpenOrders, arg.FromNumber, arg.ToNumber)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const markOrdersPaid = `UPDATE orders SET paid = true WHERE order_id = ANY($1::bigint[]) AND paid = false`

// MarkOrdersPaid flips only still-unpaid orders; callers compare the count
// against what they read to detect a concurrent checkout.
func (q *Queries) MarkOrdersPaid(ctx context.Context, ids []int64) (int64, error) {
	tag, err := q.db.Exec(ctx, markOrdersPaid, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const markOpenDineInOrdersPaid = `
UPDATE orders SET paid = true
WHERE table_number = $1 AND order_type = 'DINE_IN' AND paid = false`

func (q *Queries) MarkOpenDineInOrdersPaid(ctx context.Context, tableNumber int32) (int64, error) {
	tag, err := q.db.Exec(ctx, markOpenDineInOrdersPaid, tableNumber)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const markAllOpenDineInOrdersPaid = `UPDATE orders SET paid = true WHERE order_type = 'DINE_IN' AND paid = false`

func (q *Queries) MarkAllOpenDineInOrdersPaid(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, markAllOpenDineInOrdersPaid)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateOrderTotal = `
UPDATE orders SET total_price = $2
WHERE order_id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalParams struct {
	ID         int64
	TotalPrice pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotal, arg.ID, arg.TotalPrice))
}

// ── Order items ──

const createOrderItem = `
INSERT INTO order_items (order_id, menu_id, qty, note, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID int64
	MenuID  int64
	Qty     int32
	Note    pgtype.Text
	Status  string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.MenuID, arg.Qty, arg.Note, arg.Status))
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_item_id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id int64) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY order_item_id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return q.queryOrderItems(ctx, listOrderItemsByOrder, orderID)
}

const listActiveItemsForMenu = `
SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = ANY($1::bigint[]) AND menu_id = $2 AND status <> 'CANCELLED'
ORDER BY order_item_id DESC
FOR UPDATE`

type ListActiveItemsForMenuParams struct {
	OrderIDs []int64
	MenuID   int64
}

// ListActiveItemsForMenu returns non-cancelled lines for a menu entry,
// most recently inserted first, locked for the surrounding tx.
func (q *Queries) ListActiveItemsForMenu(ctx context.Context, arg ListActiveItemsForMenuParams) ([]OrderItem, error) {
	return q.queryOrderItems(ctx, listActiveItemsForMenu, arg.OrderIDs, arg.MenuID)
}

const setOrderItemQty = `
UPDATE order_items SET qty = $2
WHERE order_item_id = $1
RETURNING ` + orderItemColumns

type SetOrderItemQtyParams struct {
	ID  int64
	Qty int32
}

func (q *Queries) SetOrderItemQty(ctx context.Context, arg SetOrderItemQtyParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, setOrderItemQty, arg.ID, arg.Qty))
}

const cancelOrderItem = `
UPDATE order_items SET status = 'CANCELLED'
WHERE order_item_id = $1
RETURNING ` + orderItemColumns

func (q *Queries) CancelOrderItem(ctx context.Context, id int64) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, cancelOrderItem, id))
}

const updateOrderItemStatus = `
UPDATE order_items SET status = $2
WHERE order_item_id = $1 AND status = $3
RETURNING ` + orderItemColumns

type UpdateOrderItemStatusParams struct {
	ID         int64
	Status     string
	PrevStatus string
}

// UpdateOrderItemStatus only applies when the row still carries PrevStatus;
// pgx.ErrNoRows signals a lost race.
func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.Status, arg.PrevStatus))
}

const deleteOrderItem = `DELETE FROM order_items WHERE order_item_id = $1`

func (q *Queries) DeleteOrderItem(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteOrderItem, id)
	return err
}

const listLiveLines = `
SELECT oi.order_item_id, oi.order_id, oi.menu_id, m.name, oi.qty, oi.note, oi.status, m.price
FROM order_items oi
JOIN menus m ON m.menu_id = oi.menu_id
WHERE oi.order_id = $1
ORDER BY oi.order_item_id`

// ListLiveLines joins an order's items with the catalog's current prices.
func (q *Queries) ListLiveLines(ctx context.Context, orderID int64) ([]LiveLineRow, error) {
	rows, err := q.db.Query(ctx, listLiveLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LiveLineRow{}
	for rows.Next() {
		var l LiveLineRow
		if err := rows.Scan(&l.OrderItemID, &l.OrderID, &l.MenuID, &l.Name, &l.Qty, &l.Note, &l.Status, &l.Price); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const summarizeActiveLines = `
SELECT oi.menu_id, m.name, SUM(oi.qty)::bigint AS qty, m.price
FROM order_items oi
JOIN menus m ON m.menu_id = oi.menu_id
WHERE oi.order_id = ANY($1::bigint[]) AND oi.status <> 'CANCELLED' AND oi.qty > 0
GROUP BY oi.menu_id, m.name, m.price
ORDER BY oi.menu_id`

// SummarizeActiveLines totals active quantities per menu entry across orders.
func (q *Queries) SummarizeActiveLines(ctx context.Context, orderIDs []int64) ([]MenuQtyRow, error) {
	rows, err := q.db.Query(ctx, summarizeActiveLines, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuQtyRow{}
	for rows.Next() {
		var r MenuQtyRow
		if err := rows.Scan(&r.MenuID, &r.Name, &r.Qty, &r.Price); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
