// Package mood holds the emotion labels MoodTune understands, the search
// profile for each label, and the client-held mood history with its derived
// statistics.
package mood

import (
	"strings"
)

// Label is an emotion category.
type Label string

// Known labels.
const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Neutral   Label = "neutral"
	Surprised Label = "surprised"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
)

// Profile describes how a mood maps onto a catalog search.
//
// Valence and Energy are carried for display but are not used to filter or
// rank search results.
type Profile struct {
	Label   Label   `json:"label"`
	Valence float64 `json:"valence"`
	Energy  float64 `json:"energy"`
	Query   string  `json:"query"`
}

// profiles is ordered the way the labels are presented to the user.
var profiles = []Profile{
	{Label: Happy, Valence: 0.8, Energy: 0.7, Query: "happy upbeat pop"},
	{Label: Sad, Valence: 0.2, Energy: 0.3, Query: "sad melancholic"},
	{Label: Angry, Valence: 0.3, Energy: 0.9, Query: "aggressive rock metal"},
	{Label: Neutral, Valence: 0.5, Energy: 0.5, Query: "chill ambient"},
	{Label: Surprised, Valence: 0.7, Energy: 0.8, Query: "energetic exciting"},
	{Label: Fearful, Valence: 0.3, Energy: 0.6, Query: "dark atmospheric"},
	{Label: Disgusted, Valence: 0.2, Energy: 0.4, Query: "alternative indie"},
}

var byLabel = func() map[Label]Profile {
	m := make(map[Label]Profile, len(profiles))
	for _, p := range profiles {
		m[p.Label] = p
	}
	return m
}()

// Profiles returns the full mood table in presentation order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Normalize lower-cases and trims a raw label.
func Normalize(s string) Label {
	return Label(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether s names one of the labels in the table, ignoring case.
func Known(s string) bool {
	_, ok := byLabel[Normalize(s)]
	return ok
}

// Lookup returns the profile for s, ignoring case. Unrecognized labels get the
// neutral profile.
func Lookup(s string) Profile {
	if p, ok := byLabel[Normalize(s)]; ok {
		return p
	}
	return byLabel[Neutral]
}

// Title returns the label with its first letter upper-cased, e.g. "Happy".
func (l Label) Title() string {
	s := string(l)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
