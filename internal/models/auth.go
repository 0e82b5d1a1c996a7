package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the JWT claims carried by a session token issued
// after a fully successful login.
type SessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}
