package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// nextRequest builds a request carrying the cookies set on rec that are still
// alive, the way a browser would send them back.
func nextRequest(t *testing.T, rec *httptest.ResponseRecorder, prev *http.Request) *http.Request {
	t.Helper()

	jar := make(map[string]string)
	if prev != nil {
		for _, c := range prev.Cookies() {
			jar[c.Name] = c.Value
		}
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(jar, c.Name)
			continue
		}
		jar[c.Name] = c.Value
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for name, value := range jar {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]func() Store{
		"cookie": func() Store { return NewCookieStore(false) },
		"memory": func() Store { return NewMemoryStore(false) },
		"db":     func() Store { return newTestDBStore(t) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			empty := httptest.NewRequest(http.MethodGet, "/", nil)
			if _, err := s.Load(empty); !errors.Is(err, ErrNoSession) {
				t.Fatalf("Load() on empty request error = %v, want ErrNoSession", err)
			}

			rec := httptest.NewRecorder()
			err := s.Save(rec, empty, Tokens{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: time.Hour})
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			r := nextRequest(t, rec, empty)
			got, err := s.Load(r)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
				t.Errorf("Load() = %+v", got)
			}

			rec = httptest.NewRecorder()
			if err := s.SaveAccess(rec, r, "access-2", time.Hour); err != nil {
				t.Fatalf("SaveAccess() error = %v", err)
			}
			r = nextRequest(t, rec, r)
			got, err = s.Load(r)
			if err != nil {
				t.Fatalf("Load() after SaveAccess error = %v", err)
			}
			if got.AccessToken != "access-2" || got.RefreshToken != "refresh-1" {
				t.Errorf("Load() after SaveAccess = %+v", got)
			}

			rec = httptest.NewRecorder()
			if err := s.Clear(rec, r); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			r = nextRequest(t, rec, r)
			if _, err := s.Load(r); !errors.Is(err, ErrNoSession) {
				t.Errorf("Load() after Clear error = %v, want ErrNoSession", err)
			}
		})
	}
}

func TestCookieStore_Attributes(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{"development", false},
		{"production", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCookieStore(tt.secure)
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			if err := s.Save(rec, r, Tokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600 * time.Second}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			access := findCookie(rec, AccessCookie)
			refresh := findCookie(rec, RefreshCookie)
			if access == nil || refresh == nil {
				t.Fatal("Save() did not set both cookies")
			}

			if access.MaxAge != 3600 {
				t.Errorf("access MaxAge = %d, want 3600", access.MaxAge)
			}
			if refresh.MaxAge != 30*24*60*60 {
				t.Errorf("refresh MaxAge = %d, want 30 days", refresh.MaxAge)
			}
			for _, c := range []*http.Cookie{access, refresh} {
				if !c.HttpOnly {
					t.Errorf("%s is not HttpOnly", c.Name)
				}
				if c.SameSite != http.SameSiteLaxMode {
					t.Errorf("%s SameSite = %v, want Lax", c.Name, c.SameSite)
				}
				if c.Secure != tt.secure {
					t.Errorf("%s Secure = %v, want %v", c.Name, c.Secure, tt.secure)
				}
				if c.Path != "/" {
					t.Errorf("%s Path = %q, want /", c.Name, c.Path)
				}
			}
		})
	}
}

func TestCookieStore_RefreshOnly(t *testing.T) {
	s := NewCookieStore(false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "refresh-1"})

	got, err := s.Load(r)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "" || got.RefreshToken != "refresh-1" {
		t.Errorf("Load() = %+v, want refresh token only", got)
	}
}

func TestCookieStore_DefaultLifetime(t *testing.T) {
	s := NewCookieStore(false)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	if err := s.SaveAccess(rec, r, "a", 0); err != nil {
		t.Fatalf("SaveAccess() error = %v", err)
	}
	c := findCookie(rec, AccessCookie)
	if c == nil || c.MaxAge != 3600 {
		t.Errorf("access cookie = %+v, want MaxAge 3600", c)
	}
	if findCookie(rec, RefreshCookie) != nil {
		t.Error("SaveAccess() touched the refresh cookie")
	}
}

func TestMemoryStore_AccessExpiry(t *testing.T) {
	s := NewMemoryStore(false)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := s.Save(rec, empty, Tokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: time.Hour}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r := nextRequest(t, rec, empty)

	now = now.Add(2 * time.Hour)
	got, err := s.Load(r)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "" {
		t.Errorf("AccessToken = %q, want empty after expiry", got.AccessToken)
	}
	if got.RefreshToken != "r" {
		t.Errorf("RefreshToken = %q, want r", got.RefreshToken)
	}

	now = now.Add(RefreshTTL)
	if _, err := s.Load(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() after refresh expiry error = %v, want ErrNoSession", err)
	}

	// The next Save sweeps the dead session.
	if err := s.Save(httptest.NewRecorder(), empty, Tokens{AccessToken: "b", RefreshToken: "r2"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n := s.count(); n != 1 {
		t.Errorf("stored sessions = %d, want 1", n)
	}
}

// count returns the number of stored sessions, expired or not.
func (s *MemoryStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func TestMemoryStore_SaveAccessWithoutSession(t *testing.T) {
	s := NewMemoryStore(false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	err := s.SaveAccess(httptest.NewRecorder(), r, "a", time.Hour)
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("SaveAccess() error = %v, want ErrNoSession", err)
	}
}

func TestMemoryStore_SaveReplacesSession(t *testing.T) {
	s := NewMemoryStore(false)
	empty := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	if err := s.Save(rec, empty, Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r := nextRequest(t, rec, empty)

	rec = httptest.NewRecorder()
	if err := s.Save(rec, r, Tokens{AccessToken: "b", RefreshToken: "r2"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n := s.count(); n != 1 {
		t.Errorf("stored sessions = %d, want 1", n)
	}
	if _, err := s.Load(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("old session id still loads: %v", err)
	}
}
