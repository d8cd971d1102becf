package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, access_token, refresh_token, token_expiry, created_at, expires_at`

// SessionRepository stores sealed tokens for the postgres session backend.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create inserts s. A zero CreatedAt is filled in by the database and written
// back to s.
func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	args := pgx.NamedArgs{
		"id":            s.ID,
		"access_token":  s.AccessToken,
		"refresh_token": s.RefreshToken,
		"token_expiry":  s.TokenExpiry,
		"expires_at":    s.ExpiresAt,
		"created_at":    nil,
	}
	if !s.CreatedAt.IsZero() {
		args["created_at"] = s.CreatedAt
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (@id, @access_token, @refresh_token, @token_expiry, COALESCE(@created_at, NOW()), @expires_at)
		RETURNING created_at`, args,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", s.ID, err)
	}
	return nil
}

// Get returns the session with id, or ErrNotFound when it is missing or past
// its expiry.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Session])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session %s: %w", id, err)
	}
	return s, nil
}

// UpdateAccessToken replaces the sealed access token after a refresh. The
// refresh token and session lifetime are left alone.
func (r *SessionRepository) UpdateAccessToken(ctx context.Context, id uuid.UUID, accessToken []byte, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET access_token = $2, token_expiry = $3
		WHERE id = $1 AND expires_at > NOW()`, id, accessToken, expiry)
	if err != nil {
		return fmt.Errorf("updating access token for session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the session with id. Deleting a missing session is not an
// error.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes every session past its expiry and reports how many
// rows went.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
