package clistcal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Contest represents a single competitive programming contest as reported by
// the CLIST API, normalized to a uniform shape. Start and End are always UTC.
type Contest struct {
	ID    int
	Title string
	Start time.Time
	End   time.Time

	// Link to the contest page, may be empty.
	URL string

	// CLIST resource (platform) infos.
	ResourceID int
	Resource   string
}

func (c *Contest) Validate() error {
	if c.Title == "" {
		return Errorf(EINVALID, "Title required.")
	}

	if c.Start.IsZero() || c.End.IsZero() {
		return Errorf(EINVALID, "Start and end times required.")
	}

	if c.End.Before(c.Start) {
		return Errorf(EINVALID, "Contest ends before it starts.")
	}

	return nil
}

func (c *Contest) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// Summary returns the calendar event title for the contest.
func (c *Contest) Summary() string {
	return fmt.Sprintf("%s: %s", c.Resource, c.Title)
}

// Description returns the multi-line calendar event body for the contest.
func (c *Contest) Description() string {
	lines := []string{
		"Title: " + c.Title,
		"Platform: " + c.Resource,
		"Duration: " + FormatDuration(c.Duration()),
	}
	if c.URL != "" {
		lines = append(lines, "URL: "+c.URL)
	}
	return strings.Join(lines, "\n")
}

// Window represents optional bounds on contest start times.
// A nil bound is unbounded. Both bounds are inclusive.
type Window struct {
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

func (w Window) Contains(t time.Time) bool {
	if w.StartsAfter != nil && t.Before(*w.StartsAfter) {
		return false
	}
	if w.EndsBefore != nil && t.After(*w.EndsBefore) {
		return false
	}
	return true
}

// ParseTime parses an ISO timestamp into a UTC time. Accepts RFC 3339 with
// an offset or trailing "Z", naive timestamps which are assumed UTC, and
// bare dates which mean midnight UTC.
func ParseTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, Errorf(EINVALID, "Unsupported datetime format: %q.", value)
}

// Deduplicate drops contests sharing an ID. The slot of the first occurrence
// is kept but the last record for that ID wins.
func Deduplicate(contests []*Contest) []*Contest {
	index := make(map[int]int)
	deduped := make([]*Contest, 0, len(contests))
	for _, c := range contests {
		if i, ok := index[c.ID]; ok {
			deduped[i] = c
			continue
		}
		index[c.ID] = len(deduped)
		deduped = append(deduped, c)
	}
	return deduped
}

// FilterEnded drops contests that have already ended. A contest ending
// exactly at now counts as ended.
func FilterEnded(contests []*Contest, now time.Time) []*Contest {
	kept := make([]*Contest, 0, len(contests))
	for _, c := range contests {
		if c.End.After(now) {
			kept = append(kept, c)
		}
	}
	return kept
}

// FilterWindow drops contests whose start time falls outside the window.
func FilterWindow(contests []*Contest, w Window) []*Contest {
	kept := make([]*Contest, 0, len(contests))
	for _, c := range contests {
		if w.Contains(c.Start) {
			kept = append(kept, c)
		}
	}
	return kept
}

// SortByStart orders contests ascending by start time. Ties are broken by
// platform name alphabetically so output is deterministic.
func SortByStart(contests []*Contest) {
	sort.SliceStable(contests, func(i, j int) bool {
		if !contests[i].Start.Equal(contests[j].Start) {
			return contests[i].Start.Before(contests[j].Start)
		}
		return contests[i].Resource < contests[j].Resource
	})
}

// Trim caps the contest list at max entries, keeping the earliest ones.
// A max of zero means unlimited.
func Trim(contests []*Contest, max int) []*Contest {
	if max <= 0 || len(contests) <= max {
		return contests
	}
	return contests[:max]
}

// FormatDuration renders a duration like "2h 30m". Sub-minute durations
// render as seconds, zero and negative durations as "0m".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := []string{}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 && len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}

	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
