package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/pricing"
	"github.com/kiwari-pos/floor/internal/service"
	"github.com/shopspring/decimal"
)

// --- Response types ---

type tableResponse struct {
	ID         int64   `json:"id"`
	Code       *string `json:"code"`
	Number     int32   `json:"number"`
	Status     string  `json:"status"`
	OrderCount int32   `json:"order_count"`
	GroupID    *string `json:"group_id"`
}

type orderResponse struct {
	ID            int64     `json:"id"`
	TableNumber   int32     `json:"table_number"`
	OrderType     string    `json:"order_type"`
	CustomerName  *string   `json:"customer_name"`
	CustomerPhone *string   `json:"customer_phone"`
	TotalPrice    string    `json:"total_price"`
	Paid          bool      `json:"paid"`
	CreatedAt     time.Time `json:"created_at"`
}

type lineResponse struct {
	OrderItemID int64  `json:"order_item_id"`
	MenuID      int64  `json:"menu_id"`
	Name        string `json:"name"`
	Qty         int32  `json:"qty"`
	Status      string `json:"status"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
}

type orderItemResponse struct {
	ID      int64   `json:"id"`
	OrderID int64   `json:"order_id"`
	MenuID  int64   `json:"menu_id"`
	Qty     int32   `json:"qty"`
	Note    *string `json:"note"`
	Status  string  `json:"status"`
}

type billResponse struct {
	ID           int64     `json:"id"`
	TableID      *int64    `json:"table_id"`
	TotalPrice   string    `json:"total_price"`
	PaymentType  string    `json:"payment_type"`
	Status       string    `json:"status"`
	VoidReason   *string   `json:"void_reason"`
	Remark       *string   `json:"remark"`
	ClosedByID   *string   `json:"closed_by_id"`
	ClosedByName *string   `json:"closed_by_name"`
	CashReceived *string   `json:"cash_received"`
	ChangeAmount *string   `json:"change_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

type billItemResponse struct {
	ID     int64  `json:"id"`
	MenuID int64  `json:"menu_id"`
	Qty    int32  `json:"qty"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// --- Converters ---

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func numericString(n pgtype.Numeric) string {
	return money(pricing.NumericToDecimal(n))
}

func numericPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericString(n)
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func toTableResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:         t.ID,
		Code:       textPtr(t.Code),
		Number:     t.Number,
		Status:     t.Status,
		OrderCount: t.OrderCount,
	}
	if t.GroupID.Valid {
		s := uuid.UUID(t.GroupID.Bytes).String()
		resp.GroupID = &s
	}
	return resp
}

func toTableResponses(tables []database.Table) []tableResponse {
	out := make([]tableResponse, len(tables))
	for i, t := range tables {
		out[i] = toTableResponse(t)
	}
	return out
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		TableNumber:   o.TableNumber,
		OrderType:     o.OrderType,
		CustomerName:  textPtr(o.CustomerName),
		CustomerPhone: textPtr(o.CustomerPhone),
		TotalPrice:    numericString(o.TotalPrice),
		Paid:          o.Paid,
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderResponses(orders []database.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

func toLineResponses(lines []pricing.LiveLine) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{
			OrderItemID: l.OrderItemID,
			MenuID:      l.MenuID,
			Name:        l.Name,
			Qty:         l.Qty,
			Status:      l.Status,
			Price:       money(l.CatalogPrice),
			Amount:      money(l.Amount()),
		}
	}
	return out
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:      it.ID,
		OrderID: it.OrderID,
		MenuID:  it.MenuID,
		Qty:     it.Qty,
		Note:    textPtr(it.Note),
		Status:  it.Status,
	}
}

func toBillResponse(b database.Bill) billResponse {
	resp := billResponse{
		ID:           b.ID,
		TotalPrice:   numericString(b.TotalPrice),
		PaymentType:  b.PaymentType,
		Status:       b.Status,
		VoidReason:   textPtr(b.VoidReason),
		Remark:       textPtr(b.Remark),
		ClosedByID:   textPtr(b.ClosedByID),
		ClosedByName: textPtr(b.ClosedByName),
		CashReceived: numericPtr(b.CashReceived),
		ChangeAmount: numericPtr(b.ChangeAmount),
		CreatedAt:    b.CreatedAt,
	}
	if b.TableID.Valid {
		id := b.TableID.Int64
		resp.TableID = &id
	}
	return resp
}

func toBillItemResponses(items []database.BillItem) []billItemResponse {
	out := make([]billItemResponse, len(items))
	for i, it := range items {
		line := pricing.FrozenLine{MenuID: it.MenuID, Qty: it.Qty, Price: pricing.NumericToDecimal(it.Price)}
		out[i] = billItemResponse{
			ID:     it.ID,
			MenuID: it.MenuID,
			Qty:    it.Qty,
			Price:  money(line.Price),
			Amount: money(line.Amount()),
		}
	}
	return out
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps a service error onto its HTTP status. Only unexpected
// failures are logged; their message is not shown to the caller.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch service.ErrorKind(err) {
	case service.KindValidation:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case service.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case service.KindConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		slog.WarnContext(r.Context(), op+" timed out", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request timed out, nothing was saved"})
		return
	}
	slog.ErrorContext(r.Context(), op+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// publish announces a committed change. Delivery failures never fail the
// request.
func publish(ctx context.Context, pub events.Publisher, eventType string, payload any) {
	e, err := events.New(eventType, payload)
	if err != nil {
		slog.ErrorContext(ctx, "build event failed", "type", eventType, "error", err)
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "publish event failed", "type", eventType, "error", err)
	}
}
