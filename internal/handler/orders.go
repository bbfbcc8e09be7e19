package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*service.OrderResult, error)
	AppendToOrder(ctx context.Context, req service.AppendOrderRequest) (*service.OrderResult, error)
	AdjustItem(ctx context.Context, req service.AdjustItemRequest) (*service.AdjustResult, error)
	UpdateItemStatus(ctx context.Context, itemID int64, next string) (*service.ItemStatusResult, error)
	DeleteItem(ctx context.Context, itemID int64) (*service.OrderResult, error)
	GetOrder(ctx context.Context, id int64) (*service.OrderResult, error)
	ListOpenOrders(ctx context.Context) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	events events.Publisher
}

// NewOrderHandler creates a new OrderHandler. pub may be nil.
func NewOrderHandler(svc OrderServicer, pub events.Publisher) *OrderHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderHandler{svc: svc, events: pub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Submit)
	r.Post("/append", h.Append)
	r.Post("/adjust", h.Adjust)
	r.Get("/{id}", h.Get)
	r.Patch("/items/{itemID}/status", h.UpdateItemStatus)
	r.Delete("/items/{itemID}", h.DeleteItem)
}

// --- Request / Response types ---

type orderItemRequest struct {
	MenuID int64  `json:"menu_id"`
	Qty    int32  `json:"qty"`
	Note   string `json:"note"`
}

type submitOrderRequest struct {
	OrderType     string             `json:"order_type"`
	Table         string             `json:"table"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	Items         []orderItemRequest `json:"items"`
}

type appendOrderRequest struct {
	Table string             `json:"table"`
	Items []orderItemRequest `json:"items"`
}

type adjustItemRequest struct {
	OrderIDs     []int64 `json:"order_ids"`
	Table        string  `json:"table"`
	CustomerName string  `json:"customer_name"`
	MenuID       int64   `json:"menu_id"`
	Delta        int32   `json:"delta"`
}

type orderDetailResponse struct {
	orderResponse
	Lines  []lineResponse `json:"lines"`
	Total  string         `json:"total"`
	Opened bool           `json:"opened"`
	Table  *tableResponse `json:"table,omitempty"`
}

type adjustResponse struct {
	Items  []orderItemResponse `json:"items"`
	Orders []orderResponse     `json:"orders"`
}

type itemStatusResponse struct {
	Item  orderItemResponse `json:"item"`
	Order orderResponse     `json:"order"`
}

// --- Handlers ---

// List handles GET /orders, the unpaid orders on the floor.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOpenOrders(r.Context())
	if err != nil {
		writeError(w, r, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// Submit handles POST /orders. It answers 201 when a new order was opened
// and 200 when the items joined the identity's open order.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		OrderType:     req.OrderType,
		TableRef:      req.Table,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Items:         toItemInputs(req.Items),
	})
	if err != nil {
		writeError(w, r, "submit order", err)
		return
	}

	resp := toOrderDetail(res)
	status := http.StatusOK
	if res.Opened {
		status = http.StatusCreated
		publish(r.Context(), h.events, events.OrderOpened, resp)
		if resp.Table != nil {
			publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "open", Tables: []tableResponse{*resp.Table}})
		}
	} else {
		publish(r.Context(), h.events, events.OrderItemsAdded, resp)
	}
	writeJSON(w, status, resp)
}

// Append handles POST /orders/append. Unlike Submit it never opens an order.
func (h *OrderHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.AppendToOrder(r.Context(), service.AppendOrderRequest{
		TableRef: req.Table,
		Items:    toItemInputs(req.Items),
	})
	if err != nil {
		writeError(w, r, "append order", err)
		return
	}

	resp := toOrderDetail(res)
	publish(r.Context(), h.events, events.OrderItemsAdded, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Adjust handles POST /orders/adjust.
func (h *OrderHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.AdjustItem(r.Context(), service.AdjustItemRequest{
		OrderIDs:     req.OrderIDs,
		TableRef:     req.Table,
		CustomerName: req.CustomerName,
		MenuID:       req.MenuID,
		Delta:        req.Delta,
	})
	if err != nil {
		writeError(w, r, "adjust item", err)
		return
	}

	resp := adjustResponse{
		Items:  make([]orderItemResponse, len(res.Items)),
		Orders: toOrderResponses(res.Orders),
	}
	for i, it := range res.Items {
		resp.Items[i] = toOrderItemResponse(it)
	}
	publish(r.Context(), h.events, events.OrderItemAdjusted, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}, priced at current catalog prices.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	res, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetail(res))
}

// UpdateItemStatus handles PATCH /orders/items/{itemID}/status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "itemID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateItemStatus(r.Context(), itemID, req.Status)
	if err != nil {
		writeError(w, r, "update item status", err)
		return
	}

	resp := itemStatusResponse{Item: toOrderItemResponse(res.Item), Order: toOrderResponse(res.Order)}
	publish(r.Context(), h.events, events.OrderItemStatus, resp)
	writeJSON(w, http.StatusOK, resp)
}

// DeleteItem handles DELETE /orders/items/{itemID}.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "itemID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	res, err := h.svc.DeleteItem(r.Context(), itemID)
	if err != nil {
		writeError(w, r, "delete item", err)
		return
	}

	resp := toOrderDetail(res)
	publish(r.Context(), h.events, events.OrderItemDeleted, resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toItemInputs(items []orderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = service.OrderItemInput{MenuID: it.MenuID, Qty: it.Qty, Note: it.Note}
	}
	return out
}

func toOrderDetail(res *service.OrderResult) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(res.Order),
		Lines:         toLineResponses(res.Lines),
		Total:         money(res.Total),
		Opened:        res.Opened,
	}
	if res.Table != nil {
		t := toTableResponse(*res.Table)
		resp.Table = &t
	}
	return resp
}
