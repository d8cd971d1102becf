package web

import (
	"errors"
	"net/http"
	"strings"
	"time"
	// Browser zone names must resolve on hosts without zoneinfo.
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/justestif/moodtune/internal/mood"
	"github.com/justestif/moodtune/internal/spotify"
)

// DefaultPlaylistDescription is used when the request carries none.
const DefaultPlaylistDescription = "Playlist created by MoodTune"

type searchRequest struct {
	Mood string `json:"mood"`
}

type searchResponse struct {
	Tracks []spotify.Track `json:"tracks"`
}

// Search returns tracks for a mood (POST /api/spotify/search). Any non-empty
// mood is searched; unrecognized ones, blank ones included, use the neutral
// query.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Mood == "" {
		writeError(w, http.StatusBadRequest, "Mood is required")
		return
	}

	token, _, err := h.accessToken(w, r)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	tracks, err := h.catalog.Client(token).SearchByMood(r.Context(), req.Mood)
	if errors.Is(err, spotify.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("mood", req.Mood).Msg("searching tracks")
		writeError(w, http.StatusInternalServerError, "Failed to search tracks")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Tracks: tracks})
}

type playlistRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TrackURIs   *[]string `json:"trackUris"`
}

type playlistResponse struct {
	Playlist spotify.Playlist `json:"playlist"`
}

type partialPlaylistResponse struct {
	Error    string           `json:"error"`
	Playlist spotify.Playlist `json:"playlist"`
}

// Playlist creates a playlist in the user's account (POST /api/spotify/playlist).
// Only "spotify:track:<id>" URIs are accepted; anything else, episode URIs
// included, is a 400 before the playlist is created.
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" || req.TrackURIs == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	uris := *req.TrackURIs
	for _, uri := range uris {
		if _, err := spotify.ParseTrackURI(uri); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	description := req.Description
	if description == "" {
		description = DefaultPlaylistDescription
	}

	token, _, err := h.accessToken(w, r)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	logger := zerolog.Ctx(r.Context())
	client := h.catalog.Client(token)

	user, err := client.CurrentUser(r.Context())
	if err != nil {
		h.writePlaylistError(w, r, err)
		return
	}

	playlist, err := client.CreatePlaylist(r.Context(), user.ID, req.Name, description, uris)
	var notAdded *spotify.TracksNotAddedError
	if errors.As(err, &notAdded) {
		logger.Warn().Err(err).Str("playlist_id", notAdded.Playlist.ID).Msg("playlist created without tracks")
		writeJSON(w, http.StatusBadGateway, partialPlaylistResponse{
			Error:    "tracks_not_added",
			Playlist: notAdded.Playlist,
		})
		return
	}
	if err != nil {
		h.writePlaylistError(w, r, err)
		return
	}

	logger.Info().Str("playlist_id", playlist.ID).Int("tracks", len(uris)).Msg("playlist created")
	writeJSON(w, http.StatusOK, playlistResponse{Playlist: playlist})
}

func (h *Handlers) writePlaylistError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, spotify.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("creating playlist")
	writeError(w, http.StatusInternalServerError, "Failed to create playlist")
}

type statusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *spotify.User `json:"user,omitempty"`
}

// Status reports whether the browser has a working session (GET /api/spotify/status).
// It always answers 200.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	token, refreshed, err := h.accessToken(w, r)
	if err != nil {
		if !errors.Is(err, errNotAuthenticated) && !errors.Is(err, errRefresh) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("loading session")
		}
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}

	user, err := h.catalog.Client(token).CurrentUser(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("fetching profile")
		// A refresh that just succeeded already proves the session.
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: refreshed})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, User: &user})
}

// Moods lists the mood table (GET /api/moods).
func (h *Handlers) Moods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, moodViews())
}

type recordRequest struct {
	History         []mood.Entry `json:"history"`
	Emotion         string       `json:"emotion"`
	PlaylistCreated bool         `json:"playlistCreated"`
	Timezone        string       `json:"timezone"`
}

type recordResponse struct {
	History []mood.Entry `json:"history"`
	Stats   mood.Stats   `json:"stats"`
	Recent  []recentView `json:"recent"`
}

// recentLimit is how many entries the history list shows.
const recentLimit = 10

// recentView is a history entry formatted for display.
type recentView struct {
	Emotion         mood.Label `json:"emotion"`
	Title           string     `json:"title"`
	Ago             string     `json:"ago"`
	PlaylistCreated bool       `json:"playlistCreated"`
}

func recent(entries []mood.Entry, now time.Time) []recentView {
	n := min(len(entries), recentLimit)
	out := make([]recentView, n)
	for i, e := range entries[:n] {
		out[i] = recentView{
			Emotion:         e.Emotion,
			Title:           e.Emotion.Title(),
			Ago:             mood.TimeAgo(e.Timestamp, now),
			PlaylistCreated: e.PlaylistCreated,
		}
	}
	return out
}

// RecordMood appends a selection to the browser's history and returns the
// new history with its stats (POST /api/mood/record). Nothing is stored.
func (h *Handlers) RecordMood(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !mood.Known(req.Emotion) {
		writeError(w, http.StatusBadRequest, "Unknown emotion")
		return
	}
	loc, err := location(req.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timezone")
		return
	}

	logger := zerolog.Ctx(r.Context())
	tracker := mood.NewTracker(req.History)
	tracker.Subscribe(func(e mood.Entry) {
		logger.Debug().Str("mood", string(e.Emotion)).Bool("playlist_created", e.PlaylistCreated).Msg("mood recorded")
	})
	for _, obs := range h.observers {
		tracker.Subscribe(obs)
	}

	now := h.now()
	tracker.Record(mood.Entry{
		Emotion:         mood.Normalize(req.Emotion),
		Timestamp:       now,
		PlaylistCreated: req.PlaylistCreated,
	})

	entries := tracker.Entries()
	writeJSON(w, http.StatusOK, recordResponse{
		History: entries,
		Stats:   mood.ComputeStats(entries, now, loc),
		Recent:  recent(entries, now),
	})
}

type statsRequest struct {
	History  []mood.Entry `json:"history"`
	Timezone string       `json:"timezone"`
}

type statsResponse struct {
	Stats  mood.Stats   `json:"stats"`
	Recent []recentView `json:"recent"`
}

// MoodStats computes stats for a history (POST /api/mood/stats).
func (h *Handlers) MoodStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc, err := location(req.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timezone")
		return
	}

	now := h.now()
	entries := mood.NewHistory(req.History).Entries()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:  mood.ComputeStats(entries, now, loc),
		Recent: recent(entries, now),
	})
}

// Healthz answers liveness probes (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// location resolves an IANA zone name. Empty means the server's zone.
func location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
