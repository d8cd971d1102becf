package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/moodtune/internal/db"
)

// fakeRepository is an in-memory stand-in for db.SessionRepository.
type fakeRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]db.Session
	now  func() time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[uuid.UUID]db.Session), now: time.Now}
}

func (f *fakeRepository) Create(_ context.Context, s *db.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeRepository) Get(_ context.Context, id uuid.UUID) (*db.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || !f.now().Before(row.ExpiresAt) {
		return nil, db.ErrNotFound
	}
	return &row, nil
}

func (f *fakeRepository) UpdateAccessToken(_ context.Context, id uuid.UUID, access []byte, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return db.ErrNotFound
	}
	row.AccessToken = access
	row.TokenExpiry = expiry
	f.rows[id] = row
	return nil
}

func (f *fakeRepository) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func newTestDBStore(t *testing.T) *DBStore {
	t.Helper()
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	return NewDBStore(newFakeRepository(), sealer, false)
}

func TestDBStore_TokensSealedAtRest(t *testing.T) {
	repo := newFakeRepository()
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	s := NewDBStore(repo, sealer, true)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := s.Save(rec, r, Tokens{AccessToken: "plain-access", RefreshToken: "plain-refresh"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	c := findCookie(rec, IDCookie)
	if c == nil {
		t.Fatal("Save() did not set the session id cookie")
	}
	if !c.Secure || !c.HttpOnly {
		t.Errorf("id cookie Secure=%v HttpOnly=%v, want both", c.Secure, c.HttpOnly)
	}

	id, err := uuid.Parse(c.Value)
	if err != nil {
		t.Fatalf("cookie value %q is not a uuid: %v", c.Value, err)
	}
	row := repo.rows[id]
	if bytes.Contains(row.AccessToken, []byte("plain-access")) || bytes.Contains(row.RefreshToken, []byte("plain-refresh")) {
		t.Error("tokens stored in plaintext")
	}
}

func TestDBStore_ExpiredAccessToken(t *testing.T) {
	s := newTestDBStore(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.repo.(*fakeRepository).now = s.now

	rec := httptest.NewRecorder()
	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := s.Save(rec, empty, Tokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: time.Hour}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r := nextRequest(t, rec, empty)

	now = now.Add(90 * time.Minute)
	got, err := s.Load(r)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "" || got.RefreshToken != "r" {
		t.Errorf("Load() = %+v, want refresh token only", got)
	}
}

func TestDBStore_WrongSecret(t *testing.T) {
	repo := newFakeRepository()
	a, _ := NewSealer("secret-a")
	b, _ := NewSealer("secret-b")

	rec := httptest.NewRecorder()
	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := NewDBStore(repo, a, false).Save(rec, empty, Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := NewDBStore(repo, b, false).Load(nextRequest(t, rec, empty))
	if !errors.Is(err, ErrUnseal) {
		t.Errorf("Load() error = %v, want ErrUnseal", err)
	}
}

func TestDBStore_MalformedCookie(t *testing.T) {
	s := newTestDBStore(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: IDCookie, Value: "not-a-uuid"})

	if _, err := s.Load(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() error = %v, want ErrNoSession", err)
	}
	if err := s.SaveAccess(httptest.NewRecorder(), r, "a", time.Hour); !errors.Is(err, ErrNoSession) {
		t.Errorf("SaveAccess() error = %v, want ErrNoSession", err)
	}
}

func TestSealer(t *testing.T) {
	s, err := NewSealer("k")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	box1, err := s.Seal("token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	box2, _ := s.Seal("token")
	if bytes.Equal(box1, box2) {
		t.Error("Seal() reused a nonce")
	}

	got, err := s.Open(box1)
	if err != nil || got != "token" {
		t.Errorf("Open() = %q, %v", got, err)
	}

	box1[len(box1)-1] ^= 0xff
	if _, err := s.Open(box1); !errors.Is(err, ErrUnseal) {
		t.Errorf("Open(tampered) error = %v, want ErrUnseal", err)
	}
	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrUnseal) {
		t.Errorf("Open(short) error = %v, want ErrUnseal", err)
	}

	if _, err := NewSealer(""); err == nil {
		t.Error("NewSealer(\"\") error = nil, want error")
	}
}
