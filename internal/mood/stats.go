package mood

import (
	"fmt"
	"time"
)

// Stats summarizes a history.
type Stats struct {
	TotalSessions    int   `json:"totalSessions"`
	MostCommonMood   Label `json:"mostCommonMood"`
	PlaylistsCreated int   `json:"playlistsCreated"`
	StreakDays       int   `json:"streakDays"`
}

// ComputeStats derives Stats from entries. Day boundaries for the streak are
// taken in loc; a nil loc means time.Local.
func ComputeStats(entries []Entry, now time.Time, loc *time.Location) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalSessions:  len(entries),
		MostCommonMood: MostCommon(entries),
		StreakDays:     Streak(entries, now, loc),
	}
	for _, e := range entries {
		if e.PlaylistCreated {
			stats.PlaylistsCreated++
		}
	}
	return stats
}

// MostCommon returns the most frequent emotion. On a tie the label whose
// first occurrence comes earliest in entries wins.
func MostCommon(entries []Entry) Label {
	counts := make(map[Label]int)
	var order []Label
	for _, e := range entries {
		if _, seen := counts[e.Emotion]; !seen {
			order = append(order, e.Emotion)
		}
		counts[e.Emotion]++
	}

	var best Label
	bestCount := 0
	for _, l := range order {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	return best
}

type day struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) day {
	y, m, d := t.In(loc).Date()
	return day{y, m, d}
}

// Streak counts consecutive calendar days with at least one entry, ending
// today or, when today has none, yesterday. The result does not depend on
// entry order.
func Streak(entries []Entry, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}

	days := make(map[day]struct{}, len(entries))
	for _, e := range entries {
		days[dayOf(e.Timestamp, loc)] = struct{}{}
	}

	y, m, d := now.In(loc).Date()
	current := time.Date(y, m, d, 0, 0, 0, 0, loc)

	if _, ok := days[dayOf(current, loc)]; !ok {
		current = current.AddDate(0, 0, -1)
		if _, ok := days[dayOf(current, loc)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[dayOf(current, loc)]; !ok {
			break
		}
		streak++
		current = current.AddDate(0, 0, -1)
	}
	return streak
}

// TimeAgo renders the distance between ts and now the way the history list
// shows it: "Just now", "5m ago", "3h ago" or "2d ago".
func TimeAgo(ts, now time.Time) string {
	seconds := int(now.Sub(ts).Seconds())
	switch {
	case seconds < 60:
		return "Just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}
