package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbertoni/varco/internal/auth"
	"github.com/gbertoni/varco/internal/models"
	"github.com/gbertoni/varco/internal/services"
	pkglogger "github.com/gbertoni/varco/pkg/logger"
)

// capturingSender stands in for the SES gateway.
type capturingSender struct {
	lastCode string
}

func (c *capturingSender) Send(ctx context.Context, toAddress, username, code string, expiresAt time.Time) error {
	c.lastCode = code
	return nil
}

func newIntegrationAuthService(db *TestDB, sender services.CodeSender) (*services.AuthService, *services.AdminService) {
	userRepo, attemptRepo := InitializeRepositories(db.DB)
	logger := slog.Default()
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(
		userRepo,
		attemptRepo,
		sender,
		auth.NewTokenManager("integration-test-secret", 15*time.Minute),
		auth.NewTimingDelay(auth.TimingConfig{}),
		services.PolicyConfig{LockoutThreshold: 5, OTPExpiry: 5 * time.Minute, OTPLength: 6},
		logger,
		auditLogger,
	)
	adminService := services.NewAdminService(userRepo, attemptRepo, 10, logger, auditLogger)
	return authService, adminService
}

func TestLockoutAndRecoveryFlow(t *testing.T) {
	if testing.Short() || os.Getenv("SKIP_INTEGRATION") != "" {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	sender := &capturingSender{}
	authService, adminService := newIntegrationAuthService(db, sender)

	userRepo, _ := InitializeRepositories(db.DB)
	_, err = SeedUser(ctx, userRepo, "mario", "mario@example.com", "pw123")
	require.NoError(t, err)

	// Five wrong passwords block the account, with the counter visible
	// along the way.
	for i := 1; i <= 5; i++ {
		_, err := authService.Login(ctx, "mario", "wrong", "10.0.0.1")
		var badPwd *models.BadPasswordError
		require.ErrorAs(t, err, &badPwd)
		if i < 5 {
			assert.Equal(t, 5-i, badPwd.Remaining)
			assert.False(t, badPwd.Blocked)
		} else {
			assert.True(t, badPwd.Blocked)
		}
	}

	// The correct password no longer helps.
	_, err = authService.Login(ctx, "mario", "pw123", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrAccountBlocked)

	// An administrator unblocks; the counter resets with the flag.
	blocked, err := adminService.ListBlockedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	require.NoError(t, adminService.UnblockUser(ctx, blocked[0].ID, "admin"))

	// Login now succeeds up to code delivery.
	result, err := authService.Login(ctx, "mario", "pw123", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, services.LoginStatusOTPSent, result.Status)
	require.Len(t, sender.lastCode, 6)

	// Entering the delivered code completes the login.
	result, err = authService.VerifyOneTimeCode(ctx, "mario", sender.lastCode)
	require.NoError(t, err)
	assert.Equal(t, services.LoginStatusOK, result.Status)
	assert.NotEmpty(t, result.Token)

	// The code is single use.
	_, err = authService.VerifyOneTimeCode(ctx, "mario", sender.lastCode)
	assert.ErrorIs(t, err, models.ErrOtpNotIssued)

	// The audit trail recorded every attempt.
	attempts, err := adminService.ListLoginAttempts(ctx, 50)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(attempts), 7)
}

func TestAtomicFailedAttemptCounter(t *testing.T) {
	if testing.Short() || os.Getenv("SKIP_INTEGRATION") != "" {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	userRepo, _ := InitializeRepositories(db.DB)

	_, err = SeedUser(ctx, userRepo, "giulia", "giulia@example.com", "pw123")
	require.NoError(t, err)

	// Concurrent failures must never lose an increment.
	const workers = 5
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, _, err := userRepo.RegisterFailedAttempt(ctx, "giulia", 5)
			errCh <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errCh)
	}

	user, err := userRepo.GetByUsername(ctx, "giulia")
	require.NoError(t, err)
	assert.Equal(t, 5, user.FailedAttempts)
	assert.True(t, user.IsBlocked)

	// Unblock zeroes the counter along with the flag.
	require.NoError(t, userRepo.Unblock(ctx, user.ID))
	user, err = userRepo.GetByUsername(ctx, "giulia")
	require.NoError(t, err)
	assert.Equal(t, 0, user.FailedAttempts)
	assert.False(t, user.IsBlocked)
}
