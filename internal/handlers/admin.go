package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gbertoni/varco/internal/auth"
	"github.com/gbertoni/varco/internal/models"
	"github.com/gbertoni/varco/internal/services"
	pkghttp "github.com/gbertoni/varco/pkg/http"
)

// AdminServiceInterface defines the account administration contract.
type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]*services.UserResponse, error)
	ListPendingUsers(ctx context.Context) ([]*services.UserResponse, error)
	ListBlockedUsers(ctx context.Context) ([]*services.UserResponse, error)
	SetApproval(ctx context.Context, id int64, approved bool, actor string) error
	BlockUser(ctx context.Context, id int64, actor string) error
	UnblockUser(ctx context.Context, id int64, actor string) error
	ForceResetPassword(ctx context.Context, id int64, newPassword, actor string) (string, error)
	ListLoginAttempts(ctx context.Context, limit int) ([]*services.LoginAttemptResponse, error)
}

// AdminHandler handles account administration HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// SetApprovalRequest represents the request body for approval changes
type SetApprovalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// ResetPasswordRequest represents the request body for a forced reset.
// NewPassword is optional; a random temporary one is generated when absent.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"omitempty,min=5,max=128"`
}

// ResetPasswordResponse carries the plaintext exactly once.
type ResetPasswordResponse struct {
	Password string `json:"password"`
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list users")
		return
	}
	writeJSON(w, users)
}

// ListPendingUsers handles GET /admin/users/pending
func (h *AdminHandler) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListPendingUsers(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list pending users")
		return
	}
	writeJSON(w, users)
}

// ListBlockedUsers handles GET /admin/users/blocked
func (h *AdminHandler) ListBlockedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListBlockedUsers(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list blocked users")
		return
	}
	writeJSON(w, users)
}

// SetApproval handles POST /admin/users/{id}/approval
func (h *AdminHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	var req SetApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SetApproval(r.Context(), id, *req.Approved, actorFromContext(r)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to update approval")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Block handles POST /admin/users/{id}/block
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.BlockUser(r.Context(), id, actorFromContext(r)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to block user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unblock handles POST /admin/users/{id}/unblock
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.UnblockUser(r.Context(), id, actorFromContext(r)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to unblock user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /admin/users/{id}/reset-password
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	// Body is optional; an empty body means "generate one for me".
	var req ResetPasswordRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
		if err := ValidateRequest(req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
	}

	password, err := h.service.ForceResetPassword(r.Context(), id, req.NewPassword, actorFromContext(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Failed to reset password")
		default:
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	writeJSON(w, &ResetPasswordResponse{Password: password})
}

// ListLoginAttempts handles GET /admin/login-attempts
// Accepts optional query param ?limit=N (default 100).
func (h *AdminHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			pkghttp.WriteBadRequest(w, "limit must be a number")
			return
		}
		limit = n
	}

	attempts, err := h.service.ListLoginAttempts(r.Context(), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list login attempts")
		return
	}
	writeJSON(w, attempts)
}

func userIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid user id")
		return 0, false
	}
	return id, true
}

// actorFromContext names the admin performing the action for the audit
// log. Empty when the claims are missing, which only happens in tests.
func actorFromContext(r *http.Request) string {
	if claims := auth.GetUserFromContext(r); claims != nil {
		return claims.Username
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
