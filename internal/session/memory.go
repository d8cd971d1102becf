package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	accessToken   string
	accessExpiry  time.Time
	refreshToken  string
	refreshExpiry time.Time
}

// MemoryStore keeps tokens in process memory, keyed by an opaque id cookie.
// Sessions do not survive a restart. Intended for development and tests.
type MemoryStore struct {
	Secure bool

	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(secure bool) *MemoryStore {
	return &MemoryStore{
		Secure:   secure,
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// Load returns the tokens for the request's session id. An expired access
// token is reported as absent.
func (s *MemoryStore) Load(r *http.Request) (Tokens, error) {
	id := cookieValue(r, IDCookie)
	if id == "" {
		return Tokens{}, ErrNoSession
	}

	s.mu.RLock()
	e, ok := s.sessions[id]
	var t Tokens
	now := s.now()
	if ok && now.Before(e.refreshExpiry) {
		t.RefreshToken = e.refreshToken
		if e.accessToken != "" && now.Before(e.accessExpiry) {
			t.AccessToken = e.accessToken
			t.ExpiresIn = e.accessExpiry.Sub(now)
		}
	}
	s.mu.RUnlock()

	if t.AccessToken == "" && t.RefreshToken == "" {
		return Tokens{}, ErrNoSession
	}
	return t, nil
}

// Save starts a new session, replacing any the request already had.
func (s *MemoryStore) Save(w http.ResponseWriter, r *http.Request, t Tokens) error {
	now := s.now()
	id := uuid.NewString()

	s.mu.Lock()
	if old := cookieValue(r, IDCookie); old != "" {
		delete(s.sessions, old)
	}
	s.pruneLocked(now)
	s.sessions[id] = &memoryEntry{
		accessToken:   t.AccessToken,
		accessExpiry:  now.Add(lifetime(t.ExpiresIn)),
		refreshToken:  t.RefreshToken,
		refreshExpiry: now.Add(RefreshTTL),
	}
	s.mu.Unlock()

	setCookie(w, IDCookie, id, RefreshTTL, s.Secure)
	return nil
}

// SaveAccess stores a refreshed access token on the existing session.
func (s *MemoryStore) SaveAccess(_ http.ResponseWriter, r *http.Request, accessToken string, expiresIn time.Duration) error {
	id := cookieValue(r, IDCookie)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNoSession
	}
	e.accessToken = accessToken
	e.accessExpiry = s.now().Add(lifetime(expiresIn))
	return nil
}

// Clear deletes the session and expires the id cookie.
func (s *MemoryStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if id := cookieValue(r, IDCookie); id != "" {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}
	clearCookie(w, IDCookie, s.Secure)
	return nil
}

// pruneLocked drops sessions whose refresh token has expired.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for id, e := range s.sessions {
		if !now.Before(e.refreshExpiry) {
			delete(s.sessions, id)
		}
	}
}
