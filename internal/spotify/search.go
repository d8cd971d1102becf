package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/moodtune/internal/mood"
)

// DefaultSearchLimit is the number of tracks requested per mood search.
const DefaultSearchLimit = 20

// SearchByMood looks up the mood's query and returns the catalog's matches in
// the order Spotify ranks them. Unknown moods use the neutral query.
func (c *Client) SearchByMood(ctx context.Context, label string) ([]Track, error) {
	return c.SearchTracks(ctx, mood.Lookup(label).Query, DefaultSearchLimit)
}

// SearchTracks runs a keyword track search.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	var result *spotify.SearchResult
	err := c.call(ctx, "search", func(ctx context.Context) error {
		var err error
		result, err = c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
		return err
	})
	if err != nil {
		return nil, classify(err, ErrRequestFailed)
	}

	tracks := []Track{}
	if result.Tracks == nil {
		return tracks, nil
	}
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}
