package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/moodtune/internal/db"
)

// Repository is the subset of db.SessionRepository the store needs.
type Repository interface {
	Create(ctx context.Context, session *db.Session) error
	Get(ctx context.Context, id uuid.UUID) (*db.Session, error)
	UpdateAccessToken(ctx context.Context, id uuid.UUID, accessToken []byte, expiry time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DBStore keeps sealed tokens in the sessions table. The browser only holds
// the row id.
type DBStore struct {
	Secure bool

	repo   Repository
	sealer *Sealer
	now    func() time.Time
}

// NewDBStore creates a database-backed store.
func NewDBStore(repo Repository, sealer *Sealer, secure bool) *DBStore {
	return &DBStore{
		Secure: secure,
		repo:   repo,
		sealer: sealer,
		now:    time.Now,
	}
}

func (s *DBStore) sessionID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(cookieValue(r, IDCookie))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Load reads and opens the session row named by the id cookie.
func (s *DBStore) Load(r *http.Request) (Tokens, error) {
	id, ok := s.sessionID(r)
	if !ok {
		return Tokens{}, ErrNoSession
	}

	row, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return Tokens{}, ErrNoSession
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("loading session: %w", err)
	}

	refresh, err := s.sealer.Open(row.RefreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("opening refresh token: %w", err)
	}
	t := Tokens{RefreshToken: refresh}

	now := s.now()
	if len(row.AccessToken) > 0 && now.Before(row.TokenExpiry) {
		access, err := s.sealer.Open(row.AccessToken)
		if err != nil {
			return Tokens{}, fmt.Errorf("opening access token: %w", err)
		}
		t.AccessToken = access
		t.ExpiresIn = row.TokenExpiry.Sub(now)
	}
	return t, nil
}

// Save seals t into a new row and points the id cookie at it.
func (s *DBStore) Save(w http.ResponseWriter, r *http.Request, t Tokens) error {
	ctx := r.Context()

	if old, ok := s.sessionID(r); ok {
		if err := s.repo.Delete(ctx, old); err != nil {
			return fmt.Errorf("replacing session: %w", err)
		}
	}

	refresh, err := s.sealer.Seal(t.RefreshToken)
	if err != nil {
		return err
	}
	access, err := s.sealer.Seal(t.AccessToken)
	if err != nil {
		return err
	}

	now := s.now()
	row := &db.Session{
		ID:           uuid.New(),
		AccessToken:  access,
		RefreshToken: refresh,
		TokenExpiry:  now.Add(lifetime(t.ExpiresIn)),
		CreatedAt:    now,
		ExpiresAt:    now.Add(RefreshTTL),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	setCookie(w, IDCookie, row.ID.String(), RefreshTTL, s.Secure)
	return nil
}

// SaveAccess seals and stores a refreshed access token.
func (s *DBStore) SaveAccess(_ http.ResponseWriter, r *http.Request, accessToken string, expiresIn time.Duration) error {
	id, ok := s.sessionID(r)
	if !ok {
		return ErrNoSession
	}

	sealed, err := s.sealer.Seal(accessToken)
	if err != nil {
		return err
	}

	err = s.repo.UpdateAccessToken(r.Context(), id, sealed, s.now().Add(lifetime(expiresIn)))
	if errors.Is(err, db.ErrNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// Clear deletes the row and expires the id cookie.
func (s *DBStore) Clear(w http.ResponseWriter, r *http.Request) error {
	clearCookie(w, IDCookie, s.Secure)

	id, ok := s.sessionID(r)
	if !ok {
		return nil
	}
	if err := s.repo.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
