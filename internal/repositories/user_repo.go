package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gbertoni/varco/internal/database"
	"github.com/gbertoni/varco/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, is_admin, is_approved, otp_code, otp_expiry, failed_attempts, is_blocked, last_attempt, created_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner lets scanUserRow work with both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.IsApproved, &user.OtpCode, &user.OtpExpiry,
		&user.FailedAttempts, &user.IsBlocked, &user.LastAttempt, &user.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, username))
}

// Create inserts a new user row. ID and CreatedAt are assigned by the
// database and populated on the returned record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, is_admin, is_approved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.IsApproved,
	))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// ListPending returns non-admin accounts awaiting approval.
func (r *UserRepository) ListPending(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_approved = FALSE AND is_admin = FALSE ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) ListBlocked(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_blocked = TRUE ORDER BY last_attempt DESC NULLS LAST`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) SetApproval(ctx context.Context, id int64, approved bool) error {
	return r.exec(ctx, `UPDATE users SET is_approved = $1 WHERE id = $2`, approved, id)
}

// SetOTP stores a freshly issued one-time code and its expiry.
func (r *UserRepository) SetOTP(ctx context.Context, username, code string, expiry time.Time) error {
	return r.exec(ctx, `UPDATE users SET otp_code = $1, otp_expiry = $2 WHERE username = $3`, code, expiry, username)
}

// ClearOTP removes the stored code after a successful verification.
func (r *UserRepository) ClearOTP(ctx context.Context, username string) error {
	return r.exec(ctx, `UPDATE users SET otp_code = NULL, otp_expiry = NULL WHERE username = $1`, username)
}

// RegisterFailedAttempt increments the failure counter, stamps the
// attempt time, and flips is_blocked once the new count reaches the
// threshold, all in one statement. A crash can never leave a user over
// the threshold but unblocked.
func (r *UserRepository) RegisterFailedAttempt(ctx context.Context, username string, threshold int) (count int, blocked bool, err error) {
	query := `
		UPDATE users
		SET failed_attempts = failed_attempts + 1,
		    last_attempt = NOW(),
		    is_blocked = is_blocked OR (failed_attempts + 1 >= $2)
		WHERE username = $1
		RETURNING failed_attempts, is_blocked
	`

	err = r.db.Pool.QueryRow(ctx, query, username, threshold).Scan(&count, &blocked)
	if err != nil {
		return 0, false, database.MapPostgresError(err)
	}

	return count, blocked, nil
}

// ResetFailedAttempts zeroes the counter after a verified password.
// It does not touch is_blocked; blocking is cleared only by Unblock.
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, username string) error {
	return r.exec(ctx, `UPDATE users SET failed_attempts = 0, last_attempt = NOW() WHERE username = $1`, username)
}

func (r *UserRepository) Block(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_blocked = TRUE WHERE id = $1`, id)
}

// Unblock clears the block flag and gives the account a clean slate.
func (r *UserRepository) Unblock(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_blocked = FALSE, failed_attempts = 0 WHERE id = $1`, id)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
