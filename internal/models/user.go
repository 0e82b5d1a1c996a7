package models

import (
	"time"
)

// User is one account row in the credential store.
type User struct {
	ID             int64
	Username       string
	Email          *string // required only for one-time-code delivery
	PasswordHash   string  // bcrypt, never logged
	IsAdmin        bool
	IsApproved     bool
	OtpCode        *string
	OtpExpiry      *time.Time // meaningful only while OtpCode is set
	FailedAttempts int
	IsBlocked      bool
	LastAttempt    *time.Time
	CreatedAt      time.Time
}

// HasEmail reports whether the account can receive one-time codes.
func (u *User) HasEmail() bool {
	return u.Email != nil && *u.Email != ""
}
