package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/service"
)

// BillServicer defines the service methods needed by bill handlers.
// Satisfied by *service.BillingService; narrow interface for testability.
type BillServicer interface {
	CloseBill(ctx context.Context, req service.CloseBillRequest) (*service.BillResult, error)
	VoidBill(ctx context.Context, billID int64, reason string, staffID uuid.UUID) (database.Bill, error)
	ReissueBill(ctx context.Context, req service.ReissueBillRequest) (*service.ReissueResult, error)
	BackfillClosedBy(ctx context.Context, billID int64, staffID uuid.UUID) (database.Bill, error)
	GetBill(ctx context.Context, billID int64) (*service.BillResult, error)
	ListBills(ctx context.Context, req service.ListBillsRequest) ([]database.Bill, error)
}

// BillHandler handles checkout and bill history endpoints.
type BillHandler struct {
	svc    BillServicer
	events events.Publisher
}

// NewBillHandler creates a new BillHandler. pub may be nil.
func NewBillHandler(svc BillServicer, pub events.Publisher) *BillHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &BillHandler{svc: svc, events: pub}
}

// RegisterRoutes registers bill endpoints on the given Chi router.
// Expected to be mounted at /bills. Editing a closed bill is limited to
// cashiers and above.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Close)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.StaffRoleOwner, enum.StaffRoleManager, enum.StaffRoleCashier))
		r.Post("/{id}/void", h.Void)
		r.Post("/{id}/reissue", h.Reissue)
		r.Patch("/{id}/closed-by", h.BackfillClosedBy)
	})
}

// --- Request / Response types ---

type billItemRequest struct {
	MenuID int64  `json:"menu_id"`
	Qty    int32  `json:"qty"`
	Price  string `json:"price"`
}

type closeBillRequest struct {
	Table        string            `json:"table"`
	CustomerName string            `json:"customer_name"`
	Items        []billItemRequest `json:"items"`
	PaymentType  string            `json:"payment_type"`
	CashReceived string            `json:"cash_received"`
	Remark       string            `json:"remark"`
	Status       string            `json:"status"`
	VoidReason   string            `json:"void_reason"`
}

type voidBillRequest struct {
	Reason string `json:"reason"`
}

type reissueBillRequest struct {
	Reason      string            `json:"reason"`
	Items       []billItemRequest `json:"items"`
	PaymentType string            `json:"payment_type"`
	TotalPrice  string            `json:"total_price"`
}

type closedByRequest struct {
	StaffID string `json:"staff_id"`
}

type billDetailResponse struct {
	billResponse
	Items         []billItemResponse `json:"items"`
	PaidOrders    []int64            `json:"paid_orders,omitempty"`
	ClearedTables []tableResponse    `json:"cleared_tables,omitempty"`
}

type reissueResponse struct {
	Voided billResponse       `json:"voided"`
	Bill   billDetailResponse `json:"bill"`
}

type billListResponse struct {
	Bills  []billResponse `json:"bills"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// --- Handlers ---

// Close handles POST /bills, checking out a table, its merge group, or a
// takeaway customer. The caller is recorded as the closer.
func (h *BillHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req closeBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cash, err := parseMoney(req.CashReceived)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cash_received"})
		return
	}
	items, ok := toBillItemInputs(w, req.Items)
	if !ok {
		return
	}

	res, err := h.svc.CloseBill(r.Context(), service.CloseBillRequest{
		TableRef:     req.Table,
		CustomerName: req.CustomerName,
		Items:        items,
		PaymentType:  req.PaymentType,
		CashReceived: cash,
		Remark:       req.Remark,
		Status:       req.Status,
		VoidReason:   req.VoidReason,
		ClosedBy:     claims.StaffID,
	})
	if err != nil {
		writeError(w, r, "close bill", err)
		return
	}

	resp := toBillDetail(res)
	publish(r.Context(), h.events, events.BillClosed, resp)
	if len(resp.ClearedTables) > 0 {
		publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "checkout", Tables: resp.ClearedTables})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /bills?status=&start_date=&end_date=&limit=&offset=.
// Dates are YYYY-MM-DD; end_date is inclusive.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	req := service.ListBillsRequest{Status: q.Get("status"), Limit: int32(limit), Offset: int32(offset)}
	if s := q.Get("start_date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		req.From = t
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		req.To = t.AddDate(0, 0, 1)
	}

	bills, err := h.svc.ListBills(r.Context(), req)
	if err != nil {
		writeError(w, r, "list bills", err)
		return
	}

	resp := billListResponse{Bills: make([]billResponse, len(bills)), Limit: limit, Offset: offset}
	for i, b := range bills {
		resp.Bills[i] = toBillResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /bills/{id}.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}

	res, err := h.svc.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, r, "get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDetail(res))
}

// Void handles POST /bills/{id}/void.
func (h *BillHandler) Void(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}
	var req voidBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bill, err := h.svc.VoidBill(r.Context(), id, req.Reason, claims.StaffID)
	if err != nil {
		writeError(w, r, "void bill", err)
		return
	}

	resp := toBillResponse(bill)
	publish(r.Context(), h.events, events.BillVoided, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Reissue handles POST /bills/{id}/reissue: the bill is voided and replaced
// by a new one carrying the supplied lines.
func (h *BillHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}
	var req reissueBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	total, err := parseMoney(req.TotalPrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total_price"})
		return
	}
	items, ok := toBillItemInputs(w, req.Items)
	if !ok {
		return
	}

	res, err := h.svc.ReissueBill(r.Context(), service.ReissueBillRequest{
		BillID:      id,
		Reason:      req.Reason,
		Items:       items,
		PaymentType: req.PaymentType,
		TotalPrice:  total,
		StaffID:     claims.StaffID,
	})
	if err != nil {
		writeError(w, r, "reissue bill", err)
		return
	}

	resp := reissueResponse{
		Voided: toBillResponse(res.Voided),
		Bill: billDetailResponse{
			billResponse: toBillResponse(res.Bill),
			Items:        toBillItemResponses(res.Items),
		},
	}
	publish(r.Context(), h.events, events.BillReissued, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// BackfillClosedBy handles PATCH /bills/{id}/closed-by. Without a staff_id
// the caller is recorded.
func (h *BillHandler) BackfillClosedBy(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}
	var req closedByRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	staffID := claims.StaffID
	if req.StaffID != "" {
		staffID, err = uuid.Parse(req.StaffID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff_id"})
			return
		}
	}

	bill, err := h.svc.BackfillClosedBy(r.Context(), id, staffID)
	if err != nil {
		writeError(w, r, "backfill closed_by", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

// --- Helpers ---

func toBillItemInputs(w http.ResponseWriter, items []billItemRequest) ([]service.BillItemInput, bool) {
	out := make([]service.BillItemInput, len(items))
	for i, it := range items {
		price, err := parseMoney(it.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items[" + strconv.Itoa(i) + "]: invalid price"})
			return nil, false
		}
		out[i] = service.BillItemInput{MenuID: it.MenuID, Qty: it.Qty, Price: price}
	}
	return out, true
}

func toBillDetail(res *service.BillResult) billDetailResponse {
	return billDetailResponse{
		billResponse:  toBillResponse(res.Bill),
		Items:         toBillItemResponses(res.Items),
		PaidOrders:    res.PaidOrders,
		ClearedTables: toTableResponses(res.ClearedTables),
	}
}
