package domain

import "time"

// SessionTTL is the fixed lifetime of an issued session.
const SessionTTL = 24 * time.Hour

// Session is an opaque bearer session minted after a successful identity
// exchange. Expiry is passive; a session past ExpiresAt must be rejected.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
