package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

const (
	maxTracksPerRequest = 100
	trackURIPrefix      = "spotify:track:"
)

// TracksNotAddedError reports a playlist that was created but left empty or
// partially filled because appending tracks failed. The playlist is not
// rolled back.
type TracksNotAddedError struct {
	Playlist Playlist
	Added    int
	Err      error
}

func (e *TracksNotAddedError) Error() string {
	return fmt.Sprintf("playlist %s created but tracks not added (%d added): %v", e.Playlist.ID, e.Added, e.Err)
}

func (e *TracksNotAddedError) Unwrap() error {
	return e.Err
}

// ParseTrackURI returns the track id in a "spotify:track:<id>" URI.
func ParseTrackURI(uri string) (spotify.ID, error) {
	id, ok := strings.CutPrefix(uri, trackURIPrefix)
	if !ok || id == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrackURI, uri)
	}
	return spotify.ID(id), nil
}

// CreatePlaylist creates a private playlist owned by userID and then appends
// trackURIs. With no URIs the append step is skipped. A failed append returns
// *TracksNotAddedError carrying the created playlist.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, trackURIs []string) (Playlist, error) {
	ids := make([]spotify.ID, len(trackURIs))
	for i, uri := range trackURIs {
		id, err := ParseTrackURI(uri)
		if err != nil {
			return Playlist{}, err
		}
		ids[i] = id
	}

	var created *spotify.FullPlaylist
	err := c.call(ctx, "create_playlist", func(ctx context.Context) error {
		var err error
		created, err = c.api.CreatePlaylistForUser(ctx, userID, name, description, false, false)
		return err
	})
	if err != nil {
		return Playlist{}, classify(err, ErrCreateFailed)
	}
	playlist := convertPlaylist(created)

	added, err := c.addTracks(ctx, created.ID, ids)
	if err != nil {
		return playlist, &TracksNotAddedError{
			Playlist: playlist,
			Added:    added,
			Err:      classify(err, ErrRequestFailed),
		}
	}
	return playlist, nil
}

// addTracks appends ids in batches of 100 and returns how many were added
// before a failure.
func (c *Client) addTracks(ctx context.Context, playlistID spotify.ID, ids []spotify.ID) (int, error) {
	added := 0
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		err := c.call(ctx, "add_tracks", func(ctx context.Context) error {
			_, err := c.api.AddTracksToPlaylist(ctx, playlistID, batch...)
			return err
		})
		if err != nil {
			return added, fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
		added = end
	}
	return added, nil
}
