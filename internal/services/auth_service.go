package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gbertoni/varco/internal/auth"
	"github.com/gbertoni/varco/internal/models"
	pkgauth "github.com/gbertoni/varco/pkg/auth"
	pkglogger "github.com/gbertoni/varco/pkg/logger"
)

// UserRepository defines the credential store operations the auth
// service needs.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	RegisterFailedAttempt(ctx context.Context, username string, threshold int) (count int, blocked bool, err error)
	ResetFailedAttempts(ctx context.Context, username string) error
	SetOTP(ctx context.Context, username, code string, expiry time.Time) error
	ClearOTP(ctx context.Context, username string) error
}

// AttemptRecorder appends rows to the login audit trail.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// PolicyConfig holds the lockout and one-time-code policy knobs.
type PolicyConfig struct {
	LockoutThreshold int
	OTPExpiry        time.Duration
	OTPLength        int
}

// AuthService implements the login policy: password verification,
// failed-attempt lockout, and one-time-code issuance/verification.
type AuthService struct {
	repo        UserRepository
	attempts    AttemptRecorder
	sender      CodeSender
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	policy      PolicyConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	attempts AttemptRecorder,
	sender CodeSender,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	policy PolicyConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		attempts:    attempts,
		sender:      sender,
		tm:          tm,
		timing:      timing,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	IsAdmin        bool   `json:"is_admin"`
	IsApproved     bool   `json:"is_approved"`
	IsBlocked      bool   `json:"is_blocked"`
	FailedAttempts int    `json:"failed_attempts"`
	CreatedAt      string `json:"created_at"`
}

// Login outcome statuses.
const (
	LoginStatusOK      = "ok"       // terminal success, token issued
	LoginStatusOTPSent = "otp_sent" // awaiting one-time-code entry
)

// LoginResult is the outcome of a successful login step.
type LoginResult struct {
	Status string        `json:"status"`
	Token  string        `json:"token,omitempty"`
	User   *UserResponse `json:"user,omitempty"`
}

// Register creates a new unapproved, non-admin account.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*UserResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
	}
	if email != "" {
		user.Email = &email
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration failed: username or email already taken")
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.Int64("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, "", nil)

	return userModelToResponse(createdUser), nil
}

// VerifyPassword answers only the credential question: does the stored
// hash for username match plaintext. Unknown users verify as false.
// Pure check, no side effects.
func (s *AuthService) VerifyPassword(ctx context.Context, username, plaintext string) bool {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return false
	}
	return pkgauth.ComparePassword(user.PasswordHash, plaintext) == nil
}

// Login runs one pass of the login state machine up to either a
// terminal success (admin accounts skip the one-time-code branch) or
// an issued code awaiting entry. Every attempt is recorded in the
// audit trail regardless of outcome.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (*LoginResult, error) {
	start := time.Now()
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrBadRequest
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordAttempt(ctx, username, false, ipAddress, models.AttemptNoteUserNotFound)
			s.logAuth("login_failed", username, ipAddress, false, "user_not_found")
			s.timing.WaitFrom(start, false)
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsBlocked {
		s.recordAttempt(ctx, username, false, ipAddress, models.AttemptNoteAccountBlocked)
		s.logAuth("login_failed", username, ipAddress, false, "account_blocked")
		s.timing.WaitFrom(start, false)
		return nil, models.ErrAccountBlocked
	}

	if pkgauth.ComparePassword(user.PasswordHash, password) != nil {
		s.recordAttempt(ctx, username, false, ipAddress, models.AttemptNoteBadPassword)

		count, blocked, err := s.repo.RegisterFailedAttempt(ctx, username, s.policy.LockoutThreshold)
		if err != nil {
			s.logger.Error("failed to register failed attempt", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		if blocked {
			s.logAuth("login_failed", username, ipAddress, false, "account_blocked")
			s.logger.Warn("account blocked after repeated failures",
				slog.String("username", username),
				slog.Int("failed_attempts", count))
		} else {
			s.logAuth("login_failed", username, ipAddress, false, "bad_password")
		}

		s.timing.WaitFrom(start, false)
		return nil, &models.BadPasswordError{
			Remaining: s.policy.LockoutThreshold - count,
			Blocked:   blocked,
		}
	}

	// Admins authenticate on password alone.
	if user.IsAdmin {
		if err := s.repo.ResetFailedAttempts(ctx, username); err != nil {
			s.logger.Error("failed to reset failed attempts", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.recordAttempt(ctx, username, true, ipAddress, models.AttemptNotePasswordOK)
		s.logAuth("login_success", username, ipAddress, true, "")
		return s.succeed(user)
	}

	// A correct password against a pending account is reported as
	// such without touching the failure counter.
	if !user.IsApproved {
		s.recordAttempt(ctx, username, false, ipAddress, "pending_approval")
		s.logAuth("login_failed", username, ipAddress, false, "pending_approval")
		return nil, models.ErrPendingApproval
	}

	if err := s.repo.ResetFailedAttempts(ctx, username); err != nil {
		s.logger.Error("failed to reset failed attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.recordAttempt(ctx, username, true, ipAddress, models.AttemptNotePasswordOK)
	s.logAuth("login_success", username, ipAddress, true, "")

	if !user.HasEmail() {
		return nil, models.ErrEmailMissing
	}

	code, expiry, err := s.IssueOneTimeCode(ctx, username)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	if err := s.sender.Send(ctx, *user.Email, username, code, expiry); err != nil {
		s.logger.Error("failed to deliver one-time code",
			slog.String("username", username),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrDeliveryFailure, err)
	}

	s.logger.Info("one-time code issued",
		slog.String("username", username),
		slog.Time("expiry", expiry))

	return &LoginResult{Status: LoginStatusOTPSent}, nil
}

// IssueOneTimeCode generates a fresh numeric code, persists it with
// its expiry, and returns both. Delivery is the caller's job.
func (s *AuthService) IssueOneTimeCode(ctx context.Context, username string) (string, time.Time, error) {
	code := pkgauth.GenerateNumericCode(s.policy.OTPLength)
	expiry := time.Now().Add(s.policy.OTPExpiry)

	if err := s.repo.SetOTP(ctx, username, code, expiry); err != nil {
		s.logger.Error("failed to persist one-time code", slog.Any("error", err))
		return "", time.Time{}, err
	}

	return code, expiry, nil
}

// VerifyOneTimeCode checks a submitted code against the stored one.
// On success the code is cleared (single use) and a session token is
// issued. Failures leave the stored code untouched; an expired code
// stays in storage until the next issuance overwrites it.
func (s *AuthService) VerifyOneTimeCode(ctx context.Context, username, submittedCode string) (*LoginResult, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.OtpCode == nil {
		return nil, models.ErrOtpNotIssued
	}

	if user.OtpExpiry == nil || time.Now().After(*user.OtpExpiry) {
		s.logAuth("otp_failed", username, "", false, "expired")
		return nil, models.ErrOtpExpired
	}

	if *user.OtpCode != submittedCode {
		s.logAuth("otp_failed", username, "", false, "mismatch")
		return nil, models.ErrOtpMismatch
	}

	if err := s.repo.ClearOTP(ctx, username); err != nil {
		s.logger.Error("failed to clear one-time code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logAuth("otp_verified", username, "", true, "")
	return s.succeed(user)
}

// succeed issues a session token for a terminal success state.
func (s *AuthService) succeed(user *models.User) (*LoginResult, error) {
	token, err := s.tm.GenerateSessionToken(user)
	if err != nil {
		s.logger.Error("failed to generate session token",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		Status: LoginStatusOK,
		Token:  token,
		User:   userModelToResponse(user),
	}, nil
}

// recordAttempt appends to the audit trail. A failed audit write is
// logged but does not change the login decision.
func (s *AuthService) recordAttempt(ctx context.Context, username string, success bool, ipAddress, note string) {
	attempt := &models.LoginAttempt{
		Username: username,
		Success:  success,
		Note:     &note,
	}
	if ipAddress != "" {
		attempt.IP = &ipAddress
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("username", username),
			slog.Any("error", err))
	}
}

func (s *AuthService) logAuth(eventType, username, ipAddress string, success bool, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		Username:      username,
		IPAddress:     ipAddress,
		Success:       success,
		FailureReason: reason,
	})
}

// userModelToResponse converts a user model to a response DTO.
func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		IsAdmin:        user.IsAdmin,
		IsApproved:     user.IsApproved,
		IsBlocked:      user.IsBlocked,
		FailedAttempts: user.FailedAttempts,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	return resp
}
