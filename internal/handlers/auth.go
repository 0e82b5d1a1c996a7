package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gbertoni/varco/internal/models"
	"github.com/gbertoni/varco/internal/services"
	pkghttp "github.com/gbertoni/varco/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*services.UserResponse, error)
	Login(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error)
	VerifyOneTimeCode(ctx context.Context, username, code string) (*services.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest represents the request body for one-time-code entry
type VerifyOTPRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// Register handles POST /auth/register. New accounts start unapproved
// and wait for an administrator.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username or email already taken")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Internal server error")
		default:
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Login handles POST /auth/login. A successful password check either
// issues a session token directly (admins) or emails a one-time code.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ipAddress)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// VerifyOTP handles POST /auth/verify-otp, the second login step for
// non-admin accounts.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.VerifyOneTimeCode(r.Context(), strings.TrimSpace(req.Username), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			pkghttp.WriteError(w, http.StatusUnauthorized, "user_not_found", "User not found")
		case errors.Is(err, models.ErrOtpNotIssued):
			pkghttp.WriteError(w, http.StatusUnauthorized, "otp_not_issued", "No code was requested for this account")
		case errors.Is(err, models.ErrOtpExpired):
			pkghttp.WriteError(w, http.StatusUnauthorized, "otp_expired", "The code has expired, request a new one")
		case errors.Is(err, models.ErrOtpMismatch):
			pkghttp.WriteError(w, http.StatusUnauthorized, "otp_mismatch", "Incorrect code")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// writeLoginError maps the login failure taxonomy onto HTTP responses.
func writeLoginError(w http.ResponseWriter, err error) {
	var badPwd *models.BadPasswordError

	switch {
	case errors.As(err, &badPwd):
		if badPwd.Blocked {
			pkghttp.WriteLocked(w, "Account blocked after too many failed attempts")
			return
		}
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "bad_password",
			"Incorrect password",
			fmt.Sprintf("%d attempts remaining before the account is blocked", badPwd.Remaining))
	case errors.Is(err, models.ErrUserNotFound):
		pkghttp.WriteError(w, http.StatusUnauthorized, "user_not_found", "User not found")
	case errors.Is(err, models.ErrAccountBlocked):
		pkghttp.WriteLocked(w, "Account blocked, contact an administrator")
	case errors.Is(err, models.ErrPendingApproval):
		pkghttp.WriteForbidden(w, "Account awaiting administrator approval")
	case errors.Is(err, models.ErrEmailMissing):
		pkghttp.WriteError(w, http.StatusConflict, "email_missing", "No email address on file for this account")
	case errors.Is(err, models.ErrDeliveryFailure):
		pkghttp.WriteBadGateway(w, "Could not deliver the login code, try again later")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Username and password are required")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
