package spotify

import (
	"github.com/zmb3/spotify/v2"
)

// Track is the catalog snapshot the browser receives for a search hit.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
	URI     string   `json:"uri"`
}

// Artist is a track credit.
type Artist struct {
	Name string `json:"name"`
}

// Album is the album a track appears on.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Image is album artwork, largest first as Spotify returns it.
type Image struct {
	URL string `json:"url"`
}

// Playlist is a created playlist.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URI          string            `json:"uri"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// User is the signed-in Spotify account.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// convertTrack converts a Spotify FullTrack, keeping artist and image order.
func convertTrack(t spotify.FullTrack) Track {
	artists := make([]Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = Artist{Name: a.Name}
	}

	images := make([]Image, len(t.Album.Images))
	for i, img := range t.Album.Images {
		images[i] = Image{URL: img.URL}
	}

	return Track{
		ID:      t.ID.String(),
		Name:    t.Name,
		Artists: artists,
		Album: Album{
			Name:   t.Album.Name,
			Images: images,
		},
		URI: string(t.URI),
	}
}

func convertPlaylist(p *spotify.FullPlaylist) Playlist {
	return Playlist{
		ID:           p.ID.String(),
		Name:         p.Name,
		URI:          string(p.URI),
		ExternalURLs: p.ExternalURLs,
	}
}
