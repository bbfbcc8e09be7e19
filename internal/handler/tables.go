package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/service"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService; narrow interface for testability.
type TableServicer interface {
	StartOrder(ctx context.Context, ref string) (database.Table, error)
	MergeTable(ctx context.Context, sourceRef, targetRef string) (*service.MergeResult, error)
	UnmergeTable(ctx context.Context, ref string) (database.Table, error)
	MoveTable(ctx context.Context, sourceRef, targetRef string) (*service.MoveResult, error)
	ChangeStatus(ctx context.Context, ref, status string) (*service.StatusResult, error)
	ResetAll(ctx context.Context) (*service.ResetResult, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	GetTable(ctx context.Context, ref string) (*service.TableDetail, error)
}

// TableHandler handles floor topology endpoints.
type TableHandler struct {
	svc    TableServicer
	events events.Publisher
}

// NewTableHandler creates a new TableHandler. pub may be nil.
func NewTableHandler(svc TableServicer, pub events.Publisher) *TableHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TableHandler{svc: svc, events: pub}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.With(middleware.RequireRole(enum.StaffRoleOwner, enum.StaffRoleManager)).Post("/reset", h.ResetAll)
	r.Get("/{ref}", h.Get)
	r.Post("/{ref}/open", h.Open)
	r.Post("/{ref}/merge", h.Merge)
	r.Post("/{ref}/unmerge", h.Unmerge)
	r.Post("/{ref}/move", h.Move)
	r.Patch("/{ref}/status", h.ChangeStatus)
}

// --- Request / Response types ---

type targetRequest struct {
	Target string `json:"target"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type tableDetailResponse struct {
	tableResponse
	Group      []tableResponse `json:"group"`
	OpenOrders []orderResponse `json:"open_orders"`
}

type mergeResponse struct {
	Source tableResponse `json:"source"`
	Target tableResponse `json:"target"`
}

type moveResponse struct {
	Source      tableResponse `json:"source"`
	Target      tableResponse `json:"target"`
	MovedOrders int64         `json:"moved_orders"`
}

type statusResponse struct {
	Table           tableResponse `json:"table"`
	AbandonedOrders int64         `json:"abandoned_orders"`
}

type resetResponse struct {
	Tables          int64 `json:"tables"`
	AbandonedOrders int64 `json:"abandoned_orders"`
}

type tableEvent struct {
	Action string          `json:"action"`
	Tables []tableResponse `json:"tables"`
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.ListTables(r.Context())
	if err != nil {
		writeError(w, r, "list tables", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponses(tables))
}

// Get handles GET /tables/{ref}. ref may be the table id, code or number.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetTable(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, tableDetailResponse{
		tableResponse: toTableResponse(detail.Table),
		Group:         toTableResponses(detail.Group),
		OpenOrders:    toOrderResponses(detail.OpenOrders),
	})
}

// Open handles POST /tables/{ref}/open.
func (h *TableHandler) Open(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.StartOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, "open table", err)
		return
	}
	resp := toTableResponse(t)
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "open", Tables: []tableResponse{resp}})
	writeJSON(w, http.StatusOK, resp)
}

// Merge handles POST /tables/{ref}/merge, joining {ref} to the target's group.
func (h *TableHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target is required"})
		return
	}

	res, err := h.svc.MergeTable(r.Context(), chi.URLParam(r, "ref"), req.Target)
	if err != nil {
		writeError(w, r, "merge table", err)
		return
	}
	resp := mergeResponse{Source: toTableResponse(res.Source), Target: toTableResponse(res.Target)}
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "merge", Tables: []tableResponse{resp.Source, resp.Target}})
	writeJSON(w, http.StatusOK, resp)
}

// Unmerge handles POST /tables/{ref}/unmerge.
func (h *TableHandler) Unmerge(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.UnmergeTable(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, "unmerge table", err)
		return
	}
	resp := toTableResponse(t)
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "unmerge", Tables: []tableResponse{resp}})
	writeJSON(w, http.StatusOK, resp)
}

// Move handles POST /tables/{ref}/move, carrying open orders to the target.
func (h *TableHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target is required"})
		return
	}

	res, err := h.svc.MoveTable(r.Context(), chi.URLParam(r, "ref"), req.Target)
	if err != nil {
		writeError(w, r, "move table", err)
		return
	}
	resp := moveResponse{
		Source:      toTableResponse(res.Source),
		Target:      toTableResponse(res.Target),
		MovedOrders: res.MovedOrders,
	}
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "move", Tables: []tableResponse{resp.Source, resp.Target}})
	writeJSON(w, http.StatusOK, resp)
}

// ChangeStatus handles PATCH /tables/{ref}/status.
func (h *TableHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "ref"), req.Status)
	if err != nil {
		writeError(w, r, "change table status", err)
		return
	}
	resp := statusResponse{Table: toTableResponse(res.Table), AbandonedOrders: res.Abandoned}
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "status", Tables: []tableResponse{resp.Table}})
	writeJSON(w, http.StatusOK, resp)
}

// ResetAll handles POST /tables/reset, the end-of-day sweep.
func (h *TableHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResetAll(r.Context())
	if err != nil {
		writeError(w, r, "reset tables", err)
		return
	}
	publish(r.Context(), h.events, events.TableUpdated, tableEvent{Action: "reset"})
	writeJSON(w, http.StatusOK, resetResponse{Tables: res.Tables, AbandonedOrders: res.Abandoned})
}
