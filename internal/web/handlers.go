package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/justestif/moodtune/internal/auth"
	"github.com/justestif/moodtune/internal/mood"
	"github.com/justestif/moodtune/internal/session"
	"github.com/justestif/moodtune/internal/spotify"
)

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *auth.Authenticator
	catalog   *spotify.Catalog
	sessions  session.Store
	templates *Templates
	secure    bool
	observers []mood.Observer
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance. observers are attached to
// every mood recorded through the API.
func NewHandlers(a *auth.Authenticator, catalog *spotify.Catalog, sessions session.Store, templates *Templates, secure bool, observers ...mood.Observer) *Handlers {
	return &Handlers{
		auth:      a,
		catalog:   catalog,
		sessions:  sessions,
		templates: templates,
		secure:    secure,
		observers: observers,
		now:       time.Now,
	}
}

// callbackMessages are shown on the home page after a failed connect.
var callbackMessages = map[string]string{
	"access_denied":         "Spotify access was not granted.",
	"missing_params":        "Spotify did not return an authorization code.",
	"state_mismatch":        "The sign-in attempt expired or was tampered with. Please try again.",
	"token_exchange_failed": "Could not complete sign-in with Spotify.",
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	_, err := h.sessions.Load(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "MoodTune",
			CurrentPath: r.URL.Path,
		},
		HasSession: err == nil,
		Moods:      moodViews(),
	}

	if code := r.URL.Query().Get("error"); code != "" {
		msg, ok := callbackMessages[code]
		if !ok {
			msg = "Spotify sign-in failed: " + code
		}
		data.Flash = &FlashMessage{Type: "error", Message: msg}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("rendering home page")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Auth starts the Spotify OAuth flow (GET /api/spotify/auth).
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	redirect, state, err := h.auth.Begin()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("starting authorization")
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.StateTTL.Seconds()),
	})

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Callback handles the OAuth callback from Spotify (GET /api/spotify/callback).
// Every outcome is a redirect to the home page; failures carry an error code.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var expected string
	if c, err := r.Cookie(auth.StateCookie); err == nil {
		expected = c.Value
	}

	// The state is single use.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	tokens, err := h.auth.Complete(r.Context(), auth.ParseCallback(r.URL.Query()), expected)
	if err != nil {
		code := auth.RedirectCode(err)
		logger.Warn().Err(err).Str("code", code).Msg("spotify callback rejected")
		http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusFound)
		return
	}

	if err := h.sessions.Save(w, r, tokens); err != nil {
		logger.Error().Err(err).Msg("saving session")
		http.Redirect(w, r, "/?error=token_exchange_failed", http.StatusFound)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session (POST /api/spotify/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("clearing session")
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

var (
	errNotAuthenticated = errors.New("not authenticated")
	errRefresh          = errors.New("token refresh failed")
)

// accessToken returns a usable access token for the request, refreshing it
// when only the refresh token is left. A refreshed token is written back to
// the session before it is returned.
func (h *Handlers) accessToken(w http.ResponseWriter, r *http.Request) (token string, refreshed bool, err error) {
	tokens, err := h.sessions.Load(r)
	if errors.Is(err, session.ErrNoSession) {
		return "", false, errNotAuthenticated
	}
	if err != nil {
		return "", false, err
	}
	if tokens.AccessToken != "" {
		return tokens.AccessToken, false, nil
	}
	if tokens.RefreshToken == "" {
		return "", false, errNotAuthenticated
	}

	fresh, err := h.auth.Refresh(r.Context(), tokens.RefreshToken)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("refreshing access token")
		return "", false, errRefresh
	}

	if fresh.RefreshToken != tokens.RefreshToken {
		err = h.sessions.Save(w, r, fresh)
	} else {
		err = h.sessions.SaveAccess(w, r, fresh.AccessToken, fresh.ExpiresIn)
	}
	if err != nil {
		return "", false, err
	}
	return fresh.AccessToken, true, nil
}

// writeAuthError answers a failed accessToken call.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, errRefresh):
		writeError(w, http.StatusUnauthorized, "Token refresh failed")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("loading session")
		writeError(w, http.StatusInternalServerError, "Failed to load session")
	}
}
