package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gbertoni/varco/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserFetcher struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.User, error)
}

func (m *mockUserFetcher) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func protectedHandler(t *testing.T, wantUsername string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		require.NotNil(t, claims)
		assert.Equal(t, wantUsername, claims.Username)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute)
	token, err := tm.GenerateSessionToken(&models.User{ID: 1, Username: "mario"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Middleware(tm)(protectedHandler(t, "mario")).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_RejectsBadHeaders(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute)
	handler := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	headers := []string{"", "Bearer", "Basic abc", "Bearer not-a-token"}
	for _, h := range headers {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", h)
	}
}

func TestRequireAdmin_ChecksStoreNotToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute)

	// Token claims admin, but the store says the flag was revoked.
	token, err := tm.GenerateSessionToken(&models.User{ID: 1, Username: "mario", IsAdmin: true})
	require.NoError(t, err)

	fetcher := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: id, Username: "mario", IsAdmin: false}, nil
		},
	}

	handler := Middleware(tm)(RequireAdmin(fetcher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("demoted admin must not pass")
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute)
	token, err := tm.GenerateSessionToken(&models.User{ID: 1, Username: "admin", IsAdmin: true})
	require.NoError(t, err)

	fetcher := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: id, Username: "admin", IsAdmin: true}, nil
		},
	}

	handler := Middleware(tm)(RequireAdmin(fetcher)(protectedHandler(t, "admin")))

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_DeletedUser(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute)
	token, err := tm.GenerateSessionToken(&models.User{ID: 1, Username: "ghost", IsAdmin: true})
	require.NoError(t, err)

	handler := Middleware(tm)(RequireAdmin(&mockUserFetcher{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("deleted user must not pass")
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
