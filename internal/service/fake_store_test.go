package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/pricing"
	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

// --- Mock transaction ---

// mockTx implements pgx.Tx. Commit and Rollback drive the fake's snapshot;
// the unused methods panic so we catch accidental calls.
type mockTx struct {
	db   *fakeDB
	done bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.db.commitErr != nil {
		return m.db.commitErr
	}
	m.done = true
	m.db.commits++
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if m.done {
		return pgx.ErrTxClosed
	}
	m.done = true
	m.db.st = m.db.snapshot
	m.db.rollbacks++
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// --- In-memory floor ---

type floorState struct {
	tables    map[int64]database.Table
	menus     map[int64]database.Menu
	orders    map[int64]database.Order
	items     map[int64]database.OrderItem
	bills     map[int64]database.Bill
	billItems map[int64]database.BillItem
	seq       int64
}

func (s floorState) clone() floorState {
	c := floorState{
		tables:    make(map[int64]database.Table, len(s.tables)),
		menus:     make(map[int64]database.Menu, len(s.menus)),
		orders:    make(map[int64]database.Order, len(s.orders)),
		items:     make(map[int64]database.OrderItem, len(s.items)),
		bills:     make(map[int64]database.Bill, len(s.bills)),
		billItems: make(map[int64]database.BillItem, len(s.billItems)),
		seq:       s.seq,
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.menus {
		c.menus[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.bills {
		c.bills[k] = v
	}
	for k, v := range s.billItems {
		c.billItems[k] = v
	}
	return c
}

// fakeDB is a TxBeginner and a store for all three services. Begin takes a
// snapshot that an uncommitted Rollback restores, so tests can check that a
// failed operation leaves nothing behind.
type fakeDB struct {
	st       floorState
	snapshot floorState

	commitErr error
	failOn    string
	hooks     map[string]func(f *fakeDB)

	begins, commits, rollbacks int
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	f.begins++
	f.snapshot = f.st.clone()
	return &mockTx{db: f}, nil
}

func (f *fakeDB) call(name string) error {
	if hook, ok := f.hooks[name]; ok {
		hook(f)
	}
	if f.failOn == name {
		return errBoom
	}
	return nil
}

func (f *fakeDB) onCall(name string, hook func(f *fakeDB)) {
	if f.hooks == nil {
		f.hooks = make(map[string]func(f *fakeDB))
	}
	f.hooks[name] = hook
}

func (f *fakeDB) next() int64 {
	f.st.seq++
	return f.st.seq
}

func num(s string) pgtype.Numeric {
	return pricing.DecimalToNumeric(decimal.RequireFromString(s))
}

func dec(n pgtype.Numeric) decimal.Decimal {
	return pricing.NumericToDecimal(n)
}

// newFloor seeds tables 1, 2, 3, 5 and 7 (id == number, code "T<n>") and a
// small menu.
func newFloor() *fakeDB {
	f := &fakeDB{st: floorState{
		tables:    map[int64]database.Table{},
		menus:     map[int64]database.Menu{},
		orders:    map[int64]database.Order{},
		items:     map[int64]database.OrderItem{},
		bills:     map[int64]database.Bill{},
		billItems: map[int64]database.BillItem{},
		seq:       100,
	}}
	for _, n := range []int64{1, 2, 3, 5, 7} {
		f.st.tables[n] = database.Table{
			ID:     n,
			Code:   pgtype.Text{String: "T" + string(rune('0'+n)), Valid: true},
			Number: int32(n),
			Status: enum.TableStatusEmpty,
		}
	}
	f.st.menus[5] = database.Menu{ID: 5, Name: "Iced Tea", Price: num("40"), Available: true, QuickServe: true}
	f.st.menus[6] = database.Menu{ID: 6, Name: "Pad Thai", Price: num("120"), Available: true}
	f.st.menus[7] = database.Menu{ID: 7, Name: "Tom Yum", Price: num("150"), Available: false}
	f.st.menus[8] = database.Menu{ID: 8, Name: "Green Curry", Price: num("95"), Available: true}
	return f
}

func (f *fakeDB) tableStore() NewTableStore {
	return func(db database.DBTX) TableStore { return f }
}

func (f *fakeDB) orderStore() NewOrderStore {
	return func(db database.DBTX) OrderStore { return f }
}

func (f *fakeDB) billingStore() NewBillingStore {
	return func(db database.DBTX) BillingStore { return f }
}

// ── Tables ──

func (f *fakeDB) GetTableByID(ctx context.Context, id int64) (database.Table, error) {
	if err := f.call("GetTableByID"); err != nil {
		return database.Table{}, err
	}
	t, ok := f.st.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeDB) GetTableByCode(ctx context.Context, code string) (database.Table, error) {
	for _, t := range f.st.tables {
		if t.Code.Valid && t.Code.String == code {
			return t, nil
		}
	}
	return database.Table{}, pgx.ErrNoRows
}

func (f *fakeDB) GetTableByNumber(ctx context.Context, number int32) (database.Table, error) {
	for _, t := range f.st.tables {
		if t.Number == number {
			return t, nil
		}
	}
	return database.Table{}, pgx.ErrNoRows
}

func (f *fakeDB) LockTable(ctx context.Context, id int64) (database.Table, error) {
	if err := f.call("LockTable"); err != nil {
		return database.Table{}, err
	}
	return f.GetTableByID(ctx, id)
}

func (f *fakeDB) ListTables(ctx context.Context) ([]database.Table, error) {
	out := []database.Table{}
	for _, t := range f.st.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeDB) LockTablesByGroup(ctx context.Context, groupID pgtype.UUID) ([]database.Table, error) {
	out := []database.Table{}
	for _, t := range f.st.tables {
		if t.GroupID.Valid && t.GroupID == groupID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeDB) updateTable(id int64, fn func(t *database.Table)) (database.Table, error) {
	t, ok := f.st.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	fn(&t)
	f.st.tables[id] = t
	return t, nil
}

func (f *fakeDB) StartTable(ctx context.Context, id int64) (database.Table, error) {
	if err := f.call("StartTable"); err != nil {
		return database.Table{}, err
	}
	return f.updateTable(id, func(t *database.Table) {
		t.Status = enum.TableStatusOccupied
		t.OrderCount = 1
		t.GroupID = pgtype.UUID{}
	})
}

func (f *fakeDB) SetTableGroup(ctx context.Context, arg database.SetTableGroupParams) (database.Table, error) {
	if err := f.call("SetTableGroup"); err != nil {
		return database.Table{}, err
	}
	return f.updateTable(arg.ID, func(t *database.Table) {
		t.GroupID = arg.GroupID
		t.Status = enum.TableStatusOccupied
	})
}

func (f *fakeDB) ClearTableGroup(ctx context.Context, id int64) (database.Table, error) {
	return f.updateTable(id, func(t *database.Table) { t.GroupID = pgtype.UUID{} })
}

func (f *fakeDB) OccupyTable(ctx context.Context, id int64) (database.Table, error) {
	if err := f.call("OccupyTable"); err != nil {
		return database.Table{}, err
	}
	return f.updateTable(id, func(t *database.Table) {
		t.Status = enum.TableStatusOccupied
		if t.OrderCount < 1 {
			t.OrderCount = 1
		}
	})
}

func (f *fakeDB) IncrementTableOrderCount(ctx context.Context, id int64) (database.Table, error) {
	return f.updateTable(id, func(t *database.Table) { t.OrderCount++ })
}

func reset(t *database.Table) {
	t.Status = enum.TableStatusEmpty
	t.OrderCount = 0
	t.GroupID = pgtype.UUID{}
}

func (f *fakeDB) ResetTable(ctx context.Context, id int64) (database.Table, error) {
	if err := f.call("ResetTable"); err != nil {
		return database.Table{}, err
	}
	return f.updateTable(id, reset)
}

func (f *fakeDB) ResetTables(ctx context.Context, ids []int64) (int64, error) {
	if err := f.call("ResetTables"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if _, err := f.updateTable(id, reset); err == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) ResetAllTables(ctx context.Context) (int64, error) {
	for id := range f.st.tables {
		_, _ = f.updateTable(id, reset)
	}
	return int64(len(f.st.tables)), nil
}

func (f *fakeDB) SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error) {
	return f.updateTable(arg.ID, func(t *database.Table) {
		t.Status = arg.Status
		t.OrderCount = arg.OrderCount
		t.GroupID = arg.GroupID
	})
}

func (f *fakeDB) SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error) {
	return f.updateTable(arg.ID, func(t *database.Table) { t.Status = arg.Status })
}

// ── Orders ──

func (f *fakeDB) openOrders(match func(o database.Order) bool) []database.Order {
	out := []database.Order{}
	for _, o := range f.st.orders {
		if !o.Paid && match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeDB) FindOpenDineInOrder(ctx context.Context, tableNumber int32) (database.Order, error) {
	open := f.openOrders(func(o database.Order) bool {
		return o.OrderType == enum.OrderTypeDineIn && o.TableNumber == tableNumber
	})
	if len(open) == 0 {
		return database.Order{}, pgx.ErrNoRows
	}
	return open[len(open)-1], nil
}

func (f *fakeDB) FindOpenTakeawayOrder(ctx context.Context, customerName string) (database.Order, error) {
	open, _ := f.ListOpenTakeawayOrders(ctx, customerName)
	if len(open) == 0 {
		return database.Order{}, pgx.ErrNoRows
	}
	return open[len(open)-1], nil
}

func (f *fakeDB) LockTakeawayIdentity(ctx context.Context, customerName string) error {
	return f.call("LockTakeawayIdentity")
}

func (f *fakeDB) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := f.call("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	o := database.Order{
		ID:            f.next(),
		TableNumber:   arg.TableNumber,
		OrderType:     arg.OrderType,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		TotalPrice:    num("0"),
		CreatedAt:     time.Now(),
	}
	f.st.orders[o.ID] = o
	return o, nil
}

func (f *fakeDB) GetOrder(ctx context.Context, id int64) (database.Order, error) {
	o, ok := f.st.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeDB) ListOpenDineInOrders(ctx context.Context, tableNumbers []int32) ([]database.Order, error) {
	in := make(map[int32]bool, len(tableNumbers))
	for _, n := range tableNumbers {
		in[n] = true
	}
	return f.openOrders(func(o database.Order) bool {
		return o.OrderType == enum.OrderTypeDineIn && in[o.TableNumber]
	}), nil
}

func (f *fakeDB) ListOpenTakeawayOrders(ctx context.Context, customerName string) ([]database.Order, error) {
	return f.openOrders(func(o database.Order) bool {
		return o.OrderType == enum.OrderTypeTakeaway && o.CustomerName.String == customerName
	}), nil
}

func (f *fakeDB) ListOpenOrders(ctx context.Context) ([]database.Order, error) {
	return f.openOrders(func(database.Order) bool { return true }), nil
}

func (f *fakeDB) MoveOpenOrders(ctx context.Context, arg database.MoveOpenOrdersParams) (int64, error) {
	var n int64
	for id, o := range f.st.orders {
		if !o.Paid && o.OrderType == enum.OrderTypeDineIn && o.TableNumber == arg.FromNumber {
			o.TableNumber = arg.ToNumber
			f.st.orders[id] = o
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) MarkOrdersPaid(ctx context.Context, ids []int64) (int64, error) {
	if err := f.call("MarkOrdersPaid"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		o, ok := f.st.orders[id]
		if ok && !o.Paid {
			o.Paid = true
			f.st.orders[id] = o
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) markDineInPaid(match func(o database.Order) bool) int64 {
	var n int64
	for id, o := range f.st.orders {
		if !o.Paid && o.OrderType == enum.OrderTypeDineIn && match(o) {
			o.Paid = true
			f.st.orders[id] = o
			n++
		}
	}
	return n
}

func (f *fakeDB) MarkOpenDineInOrdersPaid(ctx context.Context, tableNumber int32) (int64, error) {
	return f.markDineInPaid(func(o database.Order) bool { return o.TableNumber == tableNumber }), nil
}

func (f *fakeDB) MarkAllOpenDineInOrdersPaid(ctx context.Context) (int64, error) {
	return f.markDineInPaid(func(database.Order) bool { return true }), nil
}

func (f *fakeDB) UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error) {
	o, ok := f.st.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.TotalPrice = arg.TotalPrice
	f.st.orders[arg.ID] = o
	return o, nil
}

// ── Order items ──

func (f *fakeDB) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if err := f.call("CreateOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	it := database.OrderItem{
		ID:      f.next(),
		OrderID: arg.OrderID,
		MenuID:  arg.MenuID,
		Qty:     arg.Qty,
		Note:    arg.Note,
		Status:  arg.Status,
	}
	f.st.items[it.ID] = it
	return it, nil
}

func (f *fakeDB) GetOrderItem(ctx context.Context, id int64) (database.OrderItem, error) {
	it, ok := f.st.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *fakeDB) itemsOf(orderIDs ...int64) []database.OrderItem {
	in := make(map[int64]bool, len(orderIDs))
	for _, id := range orderIDs {
		in[id] = true
	}
	out := []database.OrderItem{}
	for _, it := range f.st.items {
		if in[it.OrderID] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeDB) ListActiveItemsForMenu(ctx context.Context, arg database.ListActiveItemsForMenuParams) ([]database.OrderItem, error) {
	all := f.itemsOf(arg.OrderIDs...)
	out := []database.OrderItem{}
	for i := len(all) - 1; i >= 0; i-- {
		it := all[i]
		if it.MenuID == arg.MenuID && it.Status != enum.OrderItemStatusCancelled {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeDB) updateItem(id int64, fn func(it *database.OrderItem)) (database.OrderItem, error) {
	it, ok := f.st.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	fn(&it)
	f.st.items[id] = it
	return it, nil
}

func (f *fakeDB) SetOrderItemQty(ctx context.Context, arg database.SetOrderItemQtyParams) (database.OrderItem, error) {
	return f.updateItem(arg.ID, func(it *database.OrderItem) { it.Qty = arg.Qty })
}

func (f *fakeDB) CancelOrderItem(ctx context.Context, id int64) (database.OrderItem, error) {
	if err := f.call("CancelOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	return f.updateItem(id, func(it *database.OrderItem) { it.Status = enum.OrderItemStatusCancelled })
}

func (f *fakeDB) UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	if err := f.call("UpdateOrderItemStatus"); err != nil {
		return database.OrderItem{}, err
	}
	it, ok := f.st.items[arg.ID]
	if !ok || it.Status != arg.PrevStatus {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.Status = arg.Status
	f.st.items[arg.ID] = it
	return it, nil
}

func (f *fakeDB) DeleteOrderItem(ctx context.Context, id int64) error {
	delete(f.st.items, id)
	return nil
}

func (f *fakeDB) ListLiveLines(ctx context.Context, orderID int64) ([]database.LiveLineRow, error) {
	out := []database.LiveLineRow{}
	for _, it := range f.itemsOf(orderID) {
		m := f.st.menus[it.MenuID]
		out = append(out, database.LiveLineRow{
			OrderItemID: it.ID,
			OrderID:     it.OrderID,
			MenuID:      it.MenuID,
			Name:        m.Name,
			Qty:         it.Qty,
			Note:        it.Note,
			Status:      it.Status,
			Price:       m.Price,
		})
	}
	return out, nil
}

func (f *fakeDB) SummarizeActiveLines(ctx context.Context, orderIDs []int64) ([]database.MenuQtyRow, error) {
	qty := map[int64]int64{}
	for _, it := range f.itemsOf(orderIDs...) {
		if it.Status != enum.OrderItemStatusCancelled && it.Qty > 0 {
			qty[it.MenuID] += int64(it.Qty)
		}
	}
	out := []database.MenuQtyRow{}
	for id, q := range qty {
		m := f.st.menus[id]
		out = append(out, database.MenuQtyRow{MenuID: id, Name: m.Name, Qty: q, Price: m.Price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuID < out[j].MenuID })
	return out, nil
}

// ── Menus ──

func (f *fakeDB) GetMenu(ctx context.Context, id int64) (database.Menu, error) {
	m, ok := f.st.menus[id]
	if !ok {
		return database.Menu{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *fakeDB) GetMenusByIDs(ctx context.Context, ids []int64) ([]database.Menu, error) {
	out := []database.Menu{}
	for _, id := range ids {
		if m, ok := f.st.menus[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ── Bills ──

func (f *fakeDB) InsertBill(ctx context.Context, arg database.InsertBillParams) (database.Bill, error) {
	if err := f.call("InsertBill"); err != nil {
		return database.Bill{}, err
	}
	b := database.Bill{
		ID:           f.next(),
		TableID:      arg.TableID,
		TotalPrice:   arg.TotalPrice,
		PaymentType:  arg.PaymentType,
		Status:       arg.Status,
		VoidReason:   arg.VoidReason,
		Remark:       arg.Remark,
		ClosedByID:   arg.ClosedByID,
		ClosedByName: arg.ClosedByName,
		CashReceived: arg.CashReceived,
		ChangeAmount: arg.ChangeAmount,
		CreatedAt:    time.Now(),
	}
	f.st.bills[b.ID] = b
	return b, nil
}

func (f *fakeDB) CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error) {
	if err := f.call("CreateBillItem"); err != nil {
		return database.BillItem{}, err
	}
	it := database.BillItem{ID: f.next(), BillID: arg.BillID, MenuID: arg.MenuID, Qty: arg.Qty, Price: arg.Price}
	f.st.billItems[it.ID] = it
	return it, nil
}

func (f *fakeDB) GetBill(ctx context.Context, id int64) (database.Bill, error) {
	b, ok := f.st.bills[id]
	if !ok {
		return database.Bill{}, pgx.ErrNoRows
	}
	return b, nil
}

func (f *fakeDB) LockBill(ctx context.Context, id int64) (database.Bill, error) {
	return f.GetBill(ctx, id)
}

func (f *fakeDB) VoidBill(ctx context.Context, arg database.VoidBillParams) (database.Bill, error) {
	b, ok := f.st.bills[arg.ID]
	if !ok || b.Status == enum.BillStatusVoid {
		return database.Bill{}, pgx.ErrNoRows
	}
	b.Status = enum.BillStatusVoid
	b.TotalPrice = num("0")
	b.VoidReason = pgtype.Text{String: arg.VoidReason, Valid: true}
	if arg.ClosedByID.Valid {
		b.ClosedByID = arg.ClosedByID
		b.ClosedByName = arg.ClosedByName
	}
	f.st.bills[arg.ID] = b
	return b, nil
}

func (f *fakeDB) BackfillClosedBy(ctx context.Context, arg database.BackfillClosedByParams) (database.Bill, error) {
	if err := f.call("BackfillClosedBy"); err != nil {
		return database.Bill{}, err
	}
	b, ok := f.st.bills[arg.ID]
	if !ok || b.ClosedByID.Valid {
		return database.Bill{}, pgx.ErrNoRows
	}
	b.ClosedByID = pgtype.Text{String: arg.ClosedByID, Valid: true}
	b.ClosedByName = arg.ClosedByName
	f.st.bills[arg.ID] = b
	return b, nil
}

func (f *fakeDB) ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error) {
	out := []database.Bill{}
	for _, b := range f.st.bills {
		if arg.Status.Valid && b.Status != arg.Status.String {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if int(arg.Offset) >= len(out) {
		return []database.Bill{}, nil
	}
	out = out[arg.Offset:]
	if arg.Limit > 0 && int(arg.Limit) < len(out) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (f *fakeDB) ListBillItems(ctx context.Context, billID int64) ([]database.BillItem, error) {
	out := []database.BillItem{}
	for _, it := range f.st.billItems {
		if it.BillID == billID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) billItemsOf(billID int64) []database.BillItem {
	items, _ := f.ListBillItems(context.Background(), billID)
	return items
}
