package session

import (
	"net/http"
	"time"
)

// CookieStore keeps both tokens in the browser's cookie jar. The access
// cookie lives as long as the token; the refresh cookie for RefreshTTL.
type CookieStore struct {
	Secure bool
}

// NewCookieStore creates a cookie store. secure sets the Secure attribute.
func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{Secure: secure}
}

// Load reads the token cookies.
func (s *CookieStore) Load(r *http.Request) (Tokens, error) {
	t := Tokens{
		AccessToken:  cookieValue(r, AccessCookie),
		RefreshToken: cookieValue(r, RefreshCookie),
	}
	if t.AccessToken == "" && t.RefreshToken == "" {
		return Tokens{}, ErrNoSession
	}
	return t, nil
}

// Save writes both token cookies.
func (s *CookieStore) Save(w http.ResponseWriter, _ *http.Request, t Tokens) error {
	setCookie(w, AccessCookie, t.AccessToken, lifetime(t.ExpiresIn), s.Secure)
	if t.RefreshToken != "" {
		setCookie(w, RefreshCookie, t.RefreshToken, RefreshTTL, s.Secure)
	}
	return nil
}

// SaveAccess rewrites the access token cookie.
func (s *CookieStore) SaveAccess(w http.ResponseWriter, _ *http.Request, accessToken string, expiresIn time.Duration) error {
	setCookie(w, AccessCookie, accessToken, lifetime(expiresIn), s.Secure)
	return nil
}

// Clear expires both token cookies.
func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	clearCookie(w, AccessCookie, s.Secure)
	clearCookie(w, RefreshCookie, s.Secure)
	return nil
}
