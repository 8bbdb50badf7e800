package domain

import "time"

// SessionClaims is the verified payload of a session token.
type SessionClaims struct {
	TokenID   string
	AccountID string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is an authenticated caller.
type Principal struct {
	AccountID   string        `json:"account_id"`
	Email       string        `json:"email"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	IssuedAt    time.Time     `json:"-"`
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	Account     *Account      `json:"user"`
	Token       string        `json:"token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Permissions PermissionSet `json:"permissions"`
}
