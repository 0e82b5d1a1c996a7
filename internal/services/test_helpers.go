package services

import (
	"context"
	"time"

	"github.com/gbertoni/varco/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByUsernameFunc         func(ctx context.Context, username string) (*models.User, error)
	CreateFunc                func(ctx context.Context, user *models.User) (*models.User, error)
	RegisterFailedAttemptFunc func(ctx context.Context, username string, threshold int) (int, bool, error)
	ResetFailedAttemptsFunc   func(ctx context.Context, username string) error
	SetOTPFunc                func(ctx context.Context, username, code string, expiry time.Time) error
	ClearOTPFunc              func(ctx context.Context, username string) error
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) RegisterFailedAttempt(ctx context.Context, username string, threshold int) (int, bool, error) {
	if m.RegisterFailedAttemptFunc != nil {
		return m.RegisterFailedAttemptFunc(ctx, username, threshold)
	}
	return 0, false, models.ErrInternalServer
}

func (m *MockUserRepository) ResetFailedAttempts(ctx context.Context, username string) error {
	if m.ResetFailedAttemptsFunc != nil {
		return m.ResetFailedAttemptsFunc(ctx, username)
	}
	return nil
}

func (m *MockUserRepository) SetOTP(ctx context.Context, username, code string, expiry time.Time) error {
	if m.SetOTPFunc != nil {
		return m.SetOTPFunc(ctx, username, code, expiry)
	}
	return nil
}

func (m *MockUserRepository) ClearOTP(ctx context.Context, username string) error {
	if m.ClearOTPFunc != nil {
		return m.ClearOTPFunc(ctx, username)
	}
	return nil
}

// MockAdminUserRepository implements AdminUserRepository for testing
type MockAdminUserRepository struct {
	ListFunc               func(ctx context.Context) ([]*models.User, error)
	ListPendingFunc        func(ctx context.Context) ([]*models.User, error)
	ListBlockedFunc        func(ctx context.Context) ([]*models.User, error)
	SetApprovalFunc        func(ctx context.Context, id int64, approved bool) error
	UnblockFunc            func(ctx context.Context, id int64) error
	BlockFunc              func(ctx context.Context, id int64) error
	UpdatePasswordHashFunc func(ctx context.Context, id int64, hash string) error
}

func (m *MockAdminUserRepository) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockAdminUserRepository) ListPending(ctx context.Context) ([]*models.User, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockAdminUserRepository) ListBlocked(ctx context.Context) ([]*models.User, error) {
	if m.ListBlockedFunc != nil {
		return m.ListBlockedFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockAdminUserRepository) SetApproval(ctx context.Context, id int64, approved bool) error {
	if m.SetApprovalFunc != nil {
		return m.SetApprovalFunc(ctx, id, approved)
	}
	return nil
}

func (m *MockAdminUserRepository) Unblock(ctx context.Context, id int64) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, id)
	}
	return nil
}

func (m *MockAdminUserRepository) Block(ctx context.Context, id int64) error {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, id)
	}
	return nil
}

func (m *MockAdminUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, hash)
	}
	return nil
}

// MockAttemptRecorder implements AttemptRecorder for testing
type MockAttemptRecorder struct {
	RecordAttemptFunc func(ctx context.Context, attempt *models.LoginAttempt) error

	// Recorded collects every attempt when RecordAttemptFunc is nil.
	Recorded []*models.LoginAttempt
}

func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	m.Recorded = append(m.Recorded, attempt)
	return nil
}

// MockAttemptLister implements AttemptLister for testing
type MockAttemptLister struct {
	ListRecentFunc func(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockAttemptLister) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	return []*models.LoginAttempt{}, nil
}

// MockCodeSender implements CodeSender for testing
type MockCodeSender struct {
	SendFunc func(ctx context.Context, toAddress, username, code string, expiresAt time.Time) error

	// Sent records the last delivery when SendFunc is nil.
	SentTo   string
	SentCode string
}

func (m *MockCodeSender) Send(ctx context.Context, toAddress, username, code string, expiresAt time.Time) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, toAddress, username, code, expiresAt)
	}
	m.SentTo = toAddress
	m.SentCode = code
	return nil
}

// TestUserBuilder helps construct test users
func NewTestUser(id int64, username, passwordHash string) *models.User {
	email := username + "@example.com"
	return &models.User{
		ID:           id,
		Username:     username,
		Email:        &email,
		PasswordHash: passwordHash,
		IsApproved:   true,
		CreatedAt:    time.Now(),
	}
}

// NewTestAdmin creates an approved admin user
func NewTestAdmin(id int64, username, passwordHash string) *models.User {
	user := NewTestUser(id, username, passwordHash)
	user.IsAdmin = true
	return user
}

// NewTestUserPending creates a user awaiting approval
func NewTestUserPending(id int64, username, passwordHash string) *models.User {
	user := NewTestUser(id, username, passwordHash)
	user.IsApproved = false
	return user
}

// NewTestUserBlocked creates a locked-out user
func NewTestUserBlocked(id int64, username, passwordHash string) *models.User {
	user := NewTestUser(id, username, passwordHash)
	user.IsBlocked = true
	user.FailedAttempts = 5
	return user
}

// NewTestUserWithOTP creates a user with a pending one-time code
func NewTestUserWithOTP(id int64, username, passwordHash, code string, expiry time.Time) *models.User {
	user := NewTestUser(id, username, passwordHash)
	user.OtpCode = &code
	user.OtpExpiry = &expiry
	return user
}
