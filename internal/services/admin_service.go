package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gbertoni/varco/internal/models"
	pkgauth "github.com/gbertoni/varco/pkg/auth"
	pkglogger "github.com/gbertoni/varco/pkg/logger"
)

// AdminUserRepository is the subset of user store operations the admin
// service needs.
type AdminUserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	ListPending(ctx context.Context) ([]*models.User, error)
	ListBlocked(ctx context.Context) ([]*models.User, error)
	SetApproval(ctx context.Context, id int64, approved bool) error
	Unblock(ctx context.Context, id int64) error
	Block(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AttemptLister reads back the audit trail for review.
type AttemptLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
}

// AdminService implements the administrative account operations:
// approval, block/unblock, forced password resets, and audit review.
type AdminService struct {
	repo               AdminUserRepository
	attempts           AttemptLister
	tempPasswordLength int
	logger             *slog.Logger
	auditLogger        *pkglogger.AuditLogger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	repo AdminUserRepository,
	attempts AttemptLister,
	tempPasswordLength int,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AdminService {
	return &AdminService{
		repo:               repo,
		attempts:           attempts,
		tempPasswordLength: tempPasswordLength,
		logger:             logger,
		auditLogger:        auditLogger,
	}
}

// LoginAttemptResponse is one audit row in the HTTP response.
type LoginAttemptResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AttemptedAt string `json:"attempted_at"`
	Success     bool   `json:"success"`
	IP          string `json:"ip,omitempty"`
	Note        string `json:"note,omitempty"`
}

// ListUsers returns all accounts.
func (s *AdminService) ListUsers(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return usersToResponses(users), nil
}

// ListPendingUsers returns non-admin accounts awaiting approval.
func (s *AdminService) ListPendingUsers(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.repo.ListPending(ctx)
	if err != nil {
		s.logger.Error("failed to list pending users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return usersToResponses(users), nil
}

// ListBlockedUsers returns accounts locked out by the policy.
func (s *AdminService) ListBlockedUsers(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.repo.ListBlocked(ctx)
	if err != nil {
		s.logger.Error("failed to list blocked users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return usersToResponses(users), nil
}

// SetApproval approves or revokes approval for an account.
func (s *AdminService) SetApproval(ctx context.Context, id int64, approved bool, actor string) error {
	if err := s.repo.SetApproval(ctx, id, approved); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to set approval", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	event := "user_approved"
	if !approved {
		event = "user_approval_revoked"
	}
	s.auditLogger.LogAccountAction(event, id, actor, nil)
	return nil
}

// BlockUser sets the block flag without touching the counter.
func (s *AdminService) BlockUser(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Block(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to block user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_blocked", id, actor, nil)
	return nil
}

// UnblockUser clears the block flag and zeroes the failure counter in
// one call so the account starts with a clean slate.
func (s *AdminService) UnblockUser(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Unblock(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to unblock user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_unblocked", id, actor, nil)
	return nil
}

// ForceResetPassword replaces an account's password, generating a
// random temporary one when none is supplied. The plaintext is
// returned exactly once and never stored.
func (s *AdminService) ForceResetPassword(ctx context.Context, id int64, newPassword, actor string) (string, error) {
	if newPassword == "" {
		newPassword = pkgauth.GenerateTempPassword(s.tempPasswordLength)
	} else if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return "", err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash replacement password", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to update password hash", slog.Int64("user_id", id), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_force_reset", id, actor, nil)
	return newPassword, nil
}

// ListLoginAttempts returns the newest audit rows, most recent first.
// limit is clamped to 1–500 with a default of 100.
func (s *AdminService) ListLoginAttempts(ctx context.Context, limit int) ([]*LoginAttemptResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	attempts, err := s.attempts.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list login attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*LoginAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp := &LoginAttemptResponse{
			ID:          a.ID,
			Username:    a.Username,
			AttemptedAt: a.AttemptedAt.UTC().Format(time.RFC3339),
			Success:     a.Success,
		}
		if a.IP != nil {
			resp.IP = *a.IP
		}
		if a.Note != nil {
			resp.Note = *a.Note
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func usersToResponses(users []*models.User) []*UserResponse {
	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userModelToResponse(u))
	}
	return responses
}
