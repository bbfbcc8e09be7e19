package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/identity"
	"github.com/kiwari-pos/floor/internal/middleware"
)

// NameResolver looks up staff display names.
// Satisfied by *identity.Directory; narrow interface for testability.
type NameResolver interface {
	DisplayName(ctx context.Context, staffID uuid.UUID) (string, error)
}

// AuthHandler exposes the authenticated caller's session.
type AuthHandler struct {
	names NameResolver
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(names NameResolver) *AuthHandler {
	return &AuthHandler{names: names}
}

// RegisterRoutes registers auth endpoints on the given Chi router. The
// router must already run Authenticate.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

type meResponse struct {
	StaffID   uuid.UUID  `json:"staff_id"`
	Role      string     `json:"role"`
	FullName  *string    `json:"full_name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Me returns the token's staff id and role. full_name is null when the
// staff record is missing, so a token for a deleted user still works.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	resp := meResponse{StaffID: claims.StaffID, Role: claims.Role}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}

	name, err := h.names.DisplayName(r.Context(), claims.StaffID)
	switch {
	case err == nil:
		resp.FullName = &name
	case errors.Is(err, identity.ErrStaffNotFound):
	default:
		writeError(w, r, "resolve staff name", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
