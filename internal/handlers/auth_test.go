package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gbertoni/varco/internal/models"
	"github.com/gbertoni/varco/internal/services"
	pkghttp "github.com/gbertoni/varco/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc          func(ctx context.Context, username, email, password string) (*services.UserResponse, error)
	LoginFunc             func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error)
	VerifyOneTimeCodeFunc func(ctx context.Context, username, code string) (*services.LoginResult, error)
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*services.UserResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, username, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) VerifyOneTimeCode(ctx context.Context, username, code string) (*services.LoginResult, error) {
	if m.VerifyOneTimeCodeFunc != nil {
		return m.VerifyOneTimeCodeFunc(ctx, username, code)
	}
	return nil, models.ErrInternalServer
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Register_Created(t *testing.T) {
	mockService := &MockAuthService{
		RegisterFunc: func(ctx context.Context, username, email, password string) (*services.UserResponse, error) {
			return &services.UserResponse{ID: 1, Username: username}, nil
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Username: "giulia",
		Email:    "giulia@example.com",
		Password: "pw12345",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp services.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "giulia", resp.Username)
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	mockService := &MockAuthService{
		RegisterFunc: func(ctx context.Context, username, email, password string) (*services.UserResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Username: "giulia",
		Password: "pw12345",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandler_Register_MissingUsername(t *testing.T) {
	handler := NewAuthHandler(&MockAuthService{}, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Password: "pw12345",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_AdminToken(t *testing.T) {
	mockService := &MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return &services.LoginResult{
				Status: services.LoginStatusOK,
				Token:  "token123",
				User:   &services.UserResponse{ID: 1, Username: username, IsAdmin: true},
			}, nil
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{Username: "admin", Password: "Admin123!"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, services.LoginStatusOK, resp.Status)
	assert.Equal(t, "token123", resp.Token)
}

func TestAuthHandler_Login_OTPSent(t *testing.T) {
	mockService := &MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return &services.LoginResult{Status: services.LoginStatusOTPSent}, nil
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{Username: "mario", Password: "pw123"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, services.LoginStatusOTPSent, resp.Status)
	assert.Empty(t, resp.Token)
}

func TestAuthHandler_Login_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"user not found", models.ErrUserNotFound, http.StatusUnauthorized},
		{"bad password", &models.BadPasswordError{Remaining: 3}, http.StatusUnauthorized},
		{"blocked on this attempt", &models.BadPasswordError{Remaining: 0, Blocked: true}, http.StatusLocked},
		{"already blocked", models.ErrAccountBlocked, http.StatusLocked},
		{"pending approval", models.ErrPendingApproval, http.StatusForbidden},
		{"email missing", models.ErrEmailMissing, http.StatusConflict},
		{"delivery failure", models.ErrDeliveryFailure, http.StatusBadGateway},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAuthService{
				LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
					return nil, tt.serviceErr
				},
			}
			handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

			rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{Username: "mario", Password: "x1234"})

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuthHandler_Login_BadPasswordReportsRemaining(t *testing.T) {
	mockService := &MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return nil, &models.BadPasswordError{Remaining: 2}
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.Login, "/auth/login", LoginRequest{Username: "mario", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 attempts remaining")
}

func TestAuthHandler_VerifyOTP_Success(t *testing.T) {
	mockService := &MockAuthService{
		VerifyOneTimeCodeFunc: func(ctx context.Context, username, code string) (*services.LoginResult, error) {
			return &services.LoginResult{
				Status: services.LoginStatusOK,
				Token:  "token123",
				User:   &services.UserResponse{ID: 1, Username: username},
			}, nil
		},
	}
	handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.VerifyOTP, "/auth/verify-otp", VerifyOTPRequest{Username: "mario", Code: "123456"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token123", resp.Token)
}

func TestAuthHandler_VerifyOTP_RejectsMalformedCode(t *testing.T) {
	handler := NewAuthHandler(&MockAuthService{}, &pkghttp.IPConfig{})

	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		rec := postJSON(t, handler.VerifyOTP, "/auth/verify-otp", VerifyOTPRequest{Username: "mario", Code: code})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
	}
}

func TestAuthHandler_VerifyOTP_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"user not found", models.ErrUserNotFound, http.StatusUnauthorized},
		{"not issued", models.ErrOtpNotIssued, http.StatusUnauthorized},
		{"expired", models.ErrOtpExpired, http.StatusUnauthorized},
		{"mismatch", models.ErrOtpMismatch, http.StatusUnauthorized},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAuthService{
				VerifyOneTimeCodeFunc: func(ctx context.Context, username, code string) (*services.LoginResult, error) {
					return nil, tt.serviceErr
				},
			}
			handler := NewAuthHandler(mockService, &pkghttp.IPConfig{})

			rec := postJSON(t, handler.VerifyOTP, "/auth/verify-otp", VerifyOTPRequest{Username: "mario", Code: "123456"})

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
