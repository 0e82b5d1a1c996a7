// Package provisioning seeds the data required before the service can
// take traffic. It runs once at startup and every step is idempotent.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gbertoni/varco/internal/config"
	"github.com/gbertoni/varco/internal/models"
	pkgauth "github.com/gbertoni/varco/pkg/auth"
)

// AdminStore is the subset of the user store provisioning needs.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// EnsureAdmin creates the configured administrator account if it does
// not already exist. An existing account is left untouched, password
// included, so re-running the binary never resets admin credentials.
func EnsureAdmin(ctx context.Context, store AdminStore, cfg config.AdminConfig, logger *slog.Logger) error {
	existing, err := store.GetByUsername(ctx, cfg.Username)
	if err == nil {
		if !existing.IsAdmin {
			return fmt.Errorf("account %q exists but is not an administrator", cfg.Username)
		}
		logger.Info("admin account present", slog.String("username", cfg.Username))
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hash, err := pkgauth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     cfg.Username,
		PasswordHash: hash,
		IsAdmin:      true,
		IsApproved:   true,
	}

	created, err := store.Create(ctx, admin)
	if err != nil {
		// A concurrent instance may have won the race; that is fine.
		if errors.Is(err, models.ErrConflict) {
			logger.Info("admin account created by another instance", slog.String("username", cfg.Username))
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account provisioned",
		slog.String("username", cfg.Username),
		slog.Int64("user_id", created.ID))
	return nil
}
