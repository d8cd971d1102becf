package db

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side token record. Token columns hold sealed bytes;
// the repository never sees plaintext tokens.
type Session struct {
	ID           uuid.UUID `db:"id"`
	AccessToken  []byte    `db:"access_token"` // nil once the access token has been dropped
	RefreshToken []byte    `db:"refresh_token"`
	TokenExpiry  time.Time `db:"token_expiry"` // access token expiry
	CreatedAt    time.Time `db:"created_at"`
	ExpiresAt    time.Time `db:"expires_at"` // refresh token expiry; the row is dead after this
}
