package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_PASSWORD", "test-db-password")
	t.Setenv("ADMIN_PASSWORD", "Admin123!")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 5, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OTPExpiry)
	assert.Equal(t, 6, cfg.Auth.OTPLength)
	assert.Equal(t, 10, cfg.Auth.TempPasswordLength)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.AttemptRetention)
	assert.Equal(t, "admin", cfg.Admin.Username)
}

func TestLoad_RequiresSecrets(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"jwt secret", "JWT_SECRET"},
		{"db password", "DB_PASSWORD"},
		{"admin password", "ADMIN_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsWeakAdminPassword(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_PASSWORD", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveThreshold(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOCKOUT_THRESHOLD", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOCKOUT_THRESHOLD", "3")
	t.Setenv("OTP_EXPIRY", "2m")
	t.Setenv("ATTEMPT_RETENTION", "720h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Auth.OTPExpiry)
	assert.Equal(t, 720*time.Hour, cfg.Auth.AttemptRetention)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Name:     "varco",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=varco sslmode=disable",
		cfg.DSN())
}
