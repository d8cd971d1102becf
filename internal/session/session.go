// Package session keeps a browser's Spotify tokens between requests.
//
// The default CookieStore writes the tokens straight into HttpOnly cookies.
// MemoryStore and DBStore keep them on the server and hand the browser an
// opaque session id instead. Handlers only see the Store interface.
package session

import (
	"errors"
	"net/http"
	"time"
)

// Cookie names.
const (
	AccessCookie  = "spotify_access_token"
	RefreshCookie = "spotify_refresh_token"
	IDCookie      = "moodtune_session"
)

const (
	// RefreshTTL is how long a refresh token is kept.
	RefreshTTL = 30 * 24 * time.Hour

	// DefaultExpiresIn is used when the provider does not report a lifetime.
	DefaultExpiresIn = time.Hour
)

// ErrNoSession is returned by Load when the request carries neither an
// access token nor a refresh token.
var ErrNoSession = errors.New("no session")

// Tokens is what a session holds. AccessToken is empty once it has expired;
// ExpiresIn is the remaining lifetime when the store knows it.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Store reads and writes the tokens for one browser.
type Store interface {
	// Load returns the tokens for the request or ErrNoSession.
	Load(r *http.Request) (Tokens, error)
	// Save replaces the session with t.
	Save(w http.ResponseWriter, r *http.Request, t Tokens) error
	// SaveAccess stores a refreshed access token and leaves the refresh token alone.
	SaveAccess(w http.ResponseWriter, r *http.Request, accessToken string, expiresIn time.Duration) error
	// Clear removes the session.
	Clear(w http.ResponseWriter, r *http.Request) error
}

func lifetime(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultExpiresIn
	}
	return d
}

func setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Ensure all stores implement Store.
var (
	_ Store = (*CookieStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DBStore)(nil)
)
