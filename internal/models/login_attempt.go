package models

import "time"

// Attempt note tags recorded in the audit log.
const (
	AttemptNoteUserNotFound   = "user_not_found"
	AttemptNoteAccountBlocked = "account_blocked"
	AttemptNoteBadPassword    = "bad_password"
	AttemptNotePasswordOK     = "password_ok"
)

// LoginAttempt is an append-only audit row for one login attempt.
// Rows are never updated or deleted except by the retention pruner.
type LoginAttempt struct {
	ID          string
	Username    string
	AttemptedAt time.Time
	Success     bool
	IP          *string
	Note        *string
}
