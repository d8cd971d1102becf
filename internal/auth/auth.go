// Package auth runs the Spotify authorization-code flow: it builds the
// authorize redirect, validates the callback and trades codes and refresh
// tokens for access tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/moodtune/internal/config"
	"github.com/justestif/moodtune/internal/metrics"
	"github.com/justestif/moodtune/internal/session"
)

const (
	// StateCookie holds the CSRF state between the redirect and the callback.
	StateCookie = "spotify_auth_state"

	// StateTTL bounds how long an authorization attempt may take.
	StateTTL = 10 * time.Minute
)

// Scopes requested from the user.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserTopRead,
}

var (
	// ErrDenied is matched by DeniedError when the provider reports an error.
	ErrDenied = errors.New("authorization denied")

	// ErrMissingParams is returned when the callback lacks code or state.
	ErrMissingParams = errors.New("missing code or state")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrExchangeFailed is returned when the code-for-token exchange fails.
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrRefreshFailed is returned when a refresh token cannot be redeemed.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// DeniedError carries the error code the provider put on the callback.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authorization denied: %s", e.Reason)
}

// Is reports whether target is ErrDenied.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Callback holds the query parameters Spotify sends to the redirect URI.
type Callback struct {
	Code  string
	State string
	Error string
}

// ParseCallback extracts the callback parameters from a query string.
func ParseCallback(q url.Values) Callback {
	return Callback{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}
}

// Authenticator handles Spotify OAuth2 authentication.
type Authenticator struct {
	oauth  *oauth2.Config
	client *http.Client
}

// New creates an Authenticator from the Spotify settings. Every call to the
// accounts service is bounded by timeout.
func New(cfg config.SpotifyConfig, timeout time.Duration) *Authenticator {
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: &http.Client{Timeout: timeout},
	}
}

// AuthURL returns the authorize URL for state.
func (a *Authenticator) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Begin starts an authorization attempt and returns the redirect URL together
// with the state the caller must remember.
func (a *Authenticator) Begin() (redirect, state string, err error) {
	state, err = GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("generating state: %w", err)
	}
	return a.AuthURL(state), state, nil
}

// Complete validates a callback against the remembered state and exchanges
// the code. Checks run in order: provider error, missing parameters, state,
// exchange.
func (a *Authenticator) Complete(ctx context.Context, cb Callback, expectedState string) (session.Tokens, error) {
	if cb.Error != "" {
		return session.Tokens{}, &DeniedError{Reason: cb.Error}
	}
	if cb.Code == "" || cb.State == "" {
		return session.Tokens{}, ErrMissingParams
	}
	if expectedState == "" || subtle.ConstantTimeCompare([]byte(cb.State), []byte(expectedState)) != 1 {
		return session.Tokens{}, ErrStateMismatch
	}

	tok, err := a.oauth.Exchange(a.withClient(ctx), cb.Code)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return tokensFrom(tok), nil
}

// Refresh redeems a refresh token. When the provider does not rotate the
// refresh token the old one is returned.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	src := a.oauth.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	metrics.TokenRefreshes.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return session.Tokens{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	t := tokensFrom(tok)
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t, nil
}

// RedirectCode maps a Complete error to the value of the "error" query
// parameter the browser is sent back with.
func RedirectCode(err error) string {
	var denied *DeniedError
	switch {
	case errors.As(err, &denied):
		return denied.Reason
	case errors.Is(err, ErrMissingParams):
		return "missing_params"
	case errors.Is(err, ErrStateMismatch):
		return "state_mismatch"
	default:
		return "token_exchange_failed"
	}
}

func (a *Authenticator) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

func tokensFrom(tok *oauth2.Token) session.Tokens {
	t := session.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresIn > 0:
		t.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		t.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	return t
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
