package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/handler"
	"github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/pricing"
	"github.com/kiwari-pos/floor/internal/service"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	submitFn     func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error)
	appendFn     func(ctx context.Context, req service.AppendOrderRequest) (*service.OrderResult, error)
	adjustFn     func(ctx context.Context, req service.AdjustItemRequest) (*service.AdjustResult, error)
	itemStatusFn func(ctx context.Context, itemID int64, next string) (*service.ItemStatusResult, error)
	deleteItemFn func(ctx context.Context, itemID int64) (*service.OrderResult, error)
	getFn        func(ctx context.Context, id int64) (*service.OrderResult, error)
	listFn       func(ctx context.Context) ([]database.Order, error)
}

func (m *mockOrderService) SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
	return m.submitFn(ctx, req)
}

func (m *mockOrderService) AppendToOrder(ctx context.Context, req service.AppendOrderRequest) (*service.OrderResult, error) {
	return m.appendFn(ctx, req)
}

func (m *mockOrderService) AdjustItem(ctx context.Context, req service.AdjustItemRequest) (*service.AdjustResult, error) {
	return m.adjustFn(ctx, req)
}

func (m *mockOrderService) UpdateItemStatus(ctx context.Context, itemID int64, next string) (*service.ItemStatusResult, error) {
	return m.itemStatusFn(ctx, itemID, next)
}

func (m *mockOrderService) DeleteItem(ctx context.Context, itemID int64) (*service.OrderResult, error) {
	return m.deleteItemFn(ctx, itemID)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id int64) (*service.OrderResult, error) {
	return m.getFn(ctx, id)
}

func (m *mockOrderService) ListOpenOrders(ctx context.Context) ([]database.Order, error) {
	return m.listFn(ctx)
}

func setupOrderRouter(svc *mockOrderService, pub events.Publisher) *chi.Mux {
	h := handler.NewOrderHandler(svc, pub)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func padThaiResult(opened bool) *service.OrderResult {
	tbl := testTable(7, enum.TableStatusOccupied)
	tbl.OrderCount = 1
	return &service.OrderResult{
		Order: database.Order{ID: 42, TableNumber: 7, OrderType: enum.OrderTypeDineIn, TotalPrice: testNumeric("240")},
		Lines: []pricing.LiveLine{{
			OrderItemID:  100,
			MenuID:       6,
			Name:         "Pad Thai",
			Qty:          2,
			Status:       enum.OrderItemStatusPending,
			CatalogPrice: dec("120"),
		}},
		Total:  dec("240"),
		Opened: opened,
		Table:  &tbl,
	}
}

// =====================
// Submit tests
// =====================

func TestOrderSubmit_OpensOrder(t *testing.T) {
	pub := &recordingPublisher{}
	var got service.SubmitOrderRequest
	svc := &mockOrderService{submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
		got = req
		return padThaiResult(true), nil
	}}

	body := map[string]interface{}{
		"order_type": "DINE_IN",
		"table":      "T7",
		"items":      []map[string]interface{}{{"menu_id": 6, "qty": 2, "note": "no peanuts"}},
	}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders", body, serverClaims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	if got.TableRef != "T7" || len(got.Items) != 1 || got.Items[0].Note != "no peanuts" || got.Items[0].Qty != 2 {
		t.Errorf("service request: %+v", got)
	}
	resp := decodeResponse(t, rr)
	if resp["total"] != "240.00" || resp["opened"] != true {
		t.Errorf("response: %+v", resp)
	}
	line := resp["lines"].([]interface{})[0].(map[string]interface{})
	if line["price"] != "120.00" || line["amount"] != "240.00" {
		t.Errorf("line: %+v", line)
	}
	if types := pub.types(); len(types) != 2 || types[0] != events.OrderOpened || types[1] != events.TableUpdated {
		t.Errorf("events: %v", types)
	}
}

func TestOrderSubmit_AppendsToOpenOrder(t *testing.T) {
	pub := &recordingPublisher{}
	svc := &mockOrderService{submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
		return padThaiResult(false), nil
	}}
	body := map[string]interface{}{"table": "7", "items": []map[string]interface{}{{"menu_id": 6, "qty": 1}}}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders", body, serverClaims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.OrderItemsAdded {
		t.Errorf("events: %v", types)
	}
}

func TestOrderSubmit_UnavailableMenu(t *testing.T) {
	pub := &recordingPublisher{}
	svc := &mockOrderService{submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
		return nil, &service.MenuUnavailableError{Names: []string{"Tom Yum"}}
	}}
	body := map[string]interface{}{"table": "7", "items": []map[string]interface{}{{"menu_id": 7, "qty": 1}}}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders", body, serverClaims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if msg, _ := resp["error"].(string); msg == "" || msg == "internal server error" {
		t.Errorf("error should name the items: %q", msg)
	}
	if len(pub.types()) != 0 {
		t.Errorf("rejected submit must not publish")
	}
}

func TestOrderSubmit_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		err  error
		want int
	}{
		{"malformed body", "{not json", nil, http.StatusBadRequest},
		{"empty items", map[string]interface{}{"table": "7"}, service.ErrEmptyItems, http.StatusBadRequest},
		{"missing table", map[string]interface{}{"items": []map[string]interface{}{{"menu_id": 6, "qty": 1}}}, service.ErrMissingTable, http.StatusBadRequest},
		{"unknown table", map[string]interface{}{"table": "99"}, service.ErrTableNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
				if tt.err == nil {
					t.Fatal("service should not be called")
				}
				return nil, tt.err
			}}
			rr := doAuthRequest(t, setupOrderRouter(svc, nil), "POST", "/orders", tt.body, serverClaims)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// =====================
// Append / adjust tests
// =====================

func TestOrderAppend_NoOpenOrder(t *testing.T) {
	svc := &mockOrderService{appendFn: func(ctx context.Context, req service.AppendOrderRequest) (*service.OrderResult, error) {
		return nil, service.ErrNoOpenOrder
	}}
	body := map[string]interface{}{"table": "7", "items": []map[string]interface{}{{"menu_id": 6, "qty": 1}}}
	rr := doAuthRequest(t, setupOrderRouter(svc, nil), "POST", "/orders/append", body, serverClaims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["error"] != service.ErrNoOpenOrder.Error() {
		t.Errorf("error: %v", resp["error"])
	}
}

func TestOrderAppend(t *testing.T) {
	pub := &recordingPublisher{}
	svc := &mockOrderService{appendFn: func(ctx context.Context, req service.AppendOrderRequest) (*service.OrderResult, error) {
		return padThaiResult(false), nil
	}}
	body := map[string]interface{}{"table": "7", "items": []map[string]interface{}{{"menu_id": 6, "qty": 1}}}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders/append", body, serverClaims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.OrderItemsAdded {
		t.Errorf("events: %v", types)
	}
}

func TestOrderAdjust(t *testing.T) {
	pub := &recordingPublisher{}
	var got service.AdjustItemRequest
	svc := &mockOrderService{adjustFn: func(ctx context.Context, req service.AdjustItemRequest) (*service.AdjustResult, error) {
		got = req
		return &service.AdjustResult{
			Items:  []database.OrderItem{{ID: 101, OrderID: 42, MenuID: 5, Qty: 1, Status: enum.OrderItemStatusCancelled}},
			Orders: []database.Order{{ID: 42, TableNumber: 7, TotalPrice: testNumeric("40")}},
		}, nil
	}}
	body := map[string]interface{}{"table": "7", "menu_id": 5, "delta": -1}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders/adjust", body, serverClaims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if got.TableRef != "7" || got.MenuID != 5 || got.Delta != -1 {
		t.Errorf("service request: %+v", got)
	}
	resp := decodeResponse(t, rr)
	item := resp["items"].([]interface{})[0].(map[string]interface{})
	if item["status"] != enum.OrderItemStatusCancelled {
		t.Errorf("item: %+v", item)
	}
	if order := resp["orders"].([]interface{})[0].(map[string]interface{}); order["total_price"] != "40.00" {
		t.Errorf("order: %+v", order)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.OrderItemAdjusted {
		t.Errorf("events: %v", types)
	}
}

func TestOrderAdjust_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nothing to reduce", service.ErrNothingToReduce, http.StatusConflict},
		{"exceeds", service.ErrDecrementExceeds, http.StatusConflict},
		{"no orders", service.ErrOrderNotFound, http.StatusNotFound},
		{"zero delta", service.ErrZeroDelta, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{adjustFn: func(ctx context.Context, req service.AdjustItemRequest) (*service.AdjustResult, error) {
				return nil, tt.err
			}}
			rr := doAuthRequest(t, setupOrderRouter(svc, nil), "POST", "/orders/adjust", map[string]interface{}{"table": "7", "menu_id": 5, "delta": -1}, serverClaims)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// =====================
// Read / item tests
// =====================

func TestOrderGet(t *testing.T) {
	svc := &mockOrderService{getFn: func(ctx context.Context, id int64) (*service.OrderResult, error) {
		if id != 42 {
			return nil, service.ErrOrderNotFound
		}
		res := padThaiResult(false)
		res.Table = nil
		return res, nil
	}}
	router := setupOrderRouter(svc, nil)

	rr := doAuthRequest(t, router, "GET", "/orders/42", nil, serverClaims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["id"] != float64(42) || resp["total"] != "240.00" {
		t.Errorf("response: %+v", resp)
	}
	if _, ok := resp["table"]; ok {
		t.Errorf("table should be omitted when absent")
	}

	if rr := doAuthRequest(t, router, "GET", "/orders/7", nil, serverClaims); rr.Code != http.StatusNotFound {
		t.Errorf("missing order: got %d, want 404", rr.Code)
	}
	if rr := doAuthRequest(t, router, "GET", "/orders/abc", nil, serverClaims); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", rr.Code)
	}
}

func TestOrderList(t *testing.T) {
	svc := &mockOrderService{listFn: func(ctx context.Context) ([]database.Order, error) {
		return []database.Order{
			{ID: 1, TableNumber: 7, OrderType: enum.OrderTypeDineIn, TotalPrice: testNumeric("120")},
			{ID: 2, OrderType: enum.OrderTypeTakeaway, CustomerName: pgtype.Text{String: "Ann", Valid: true}, TotalPrice: testNumeric("40")},
		}, nil
	}}
	rr := doAuthRequest(t, setupOrderRouter(svc, nil), "GET", "/orders", nil, serverClaims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	list := decodeList(t, rr)
	if len(list) != 2 || list[1]["customer_name"] != "Ann" || list[0]["customer_name"] != nil {
		t.Errorf("orders: %+v", list)
	}
}

func TestOrderItemStatus(t *testing.T) {
	pub := &recordingPublisher{}
	var gotID int64
	var gotStatus string
	svc := &mockOrderService{itemStatusFn: func(ctx context.Context, itemID int64, next string) (*service.ItemStatusResult, error) {
		gotID, gotStatus = itemID, next
		return &service.ItemStatusResult{
			Item:  database.OrderItem{ID: itemID, OrderID: 42, MenuID: 6, Qty: 1, Status: next},
			Order: database.Order{ID: 42, TotalPrice: testNumeric("120")},
		}, nil
	}}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "PATCH", "/orders/items/100/status", map[string]string{"status": "PREPARING"}, staffClaims(enum.StaffRoleKitchen))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if gotID != 100 || gotStatus != "PREPARING" {
		t.Errorf("service call: %d %s", gotID, gotStatus)
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.OrderItemStatus {
		t.Errorf("events: %v", types)
	}
}

func TestOrderItemStatus_Conflicts(t *testing.T) {
	for _, err := range []error{service.ErrItemTransition, service.ErrItemStatusChanged, service.ErrOrderPaid} {
		svc := &mockOrderService{itemStatusFn: func(ctx context.Context, itemID int64, next string) (*service.ItemStatusResult, error) {
			return nil, err
		}}
		rr := doAuthRequest(t, setupOrderRouter(svc, nil), "PATCH", "/orders/items/100/status", map[string]string{"status": "SERVED"}, serverClaims)
		if rr.Code != http.StatusConflict {
			t.Errorf("%v: got %d, want 409", err, rr.Code)
		}
	}
}

func TestOrderDeleteItem(t *testing.T) {
	pub := &recordingPublisher{}
	svc := &mockOrderService{deleteItemFn: func(ctx context.Context, itemID int64) (*service.OrderResult, error) {
		if itemID != 100 {
			return nil, service.ErrOrderItemNotFound
		}
		res := padThaiResult(false)
		res.Lines = nil
		res.Total = dec("0")
		return res, nil
	}}
	router := setupOrderRouter(svc, pub)

	rr := doAuthRequest(t, router, "DELETE", "/orders/items/100", nil, serverClaims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["total"] != "0.00" {
		t.Errorf("total: %v", resp["total"])
	}
	if types := pub.types(); len(types) != 1 || types[0] != events.OrderItemDeleted {
		t.Errorf("events: %v", types)
	}

	if rr := doAuthRequest(t, router, "DELETE", "/orders/items/5", nil, serverClaims); rr.Code != http.StatusNotFound {
		t.Errorf("missing item: got %d, want 404", rr.Code)
	}
}

func TestOrderSubmit_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: errBoom}
	svc := &mockOrderService{submitFn: func(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error) {
		return padThaiResult(true), nil
	}}
	body := map[string]interface{}{"table": "7", "items": []map[string]interface{}{{"menu_id": 6, "qty": 2}}}
	rr := doAuthRequest(t, setupOrderRouter(svc, pub), "POST", "/orders", body, serverClaims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rr.Code)
	}
}
