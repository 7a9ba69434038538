package ics_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clistcal"
	"clistcal/ics"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testContests() []*clistcal.Contest {
	base := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	return []*clistcal.Contest{
		{
			ID:       1,
			Title:    "Weekly Contest 400",
			Resource: "LeetCode",
			Start:    base,
			End:      base.Add(90 * time.Minute),
			URL:      "https://leetcode.com/contest/weekly-contest-400",
		},
		{
			ID:       2,
			Title:    "Round 930, Div. 2",
			Resource: "Codeforces",
			Start:    base.Add(4 * time.Hour),
			End:      base.Add(6 * time.Hour),
			URL:      "https://codeforces.com/contests/1930",
		},
		{
			ID:       3,
			Title:    "Beginner Contest 345",
			Resource: "AtCoder",
			Start:    base.Add(20 * time.Hour),
			End:      base.Add(21*time.Hour + 40*time.Minute),
		},
	}
}

func encode(t *testing.T, cal ics.Calendar, contests []*clistcal.Contest) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, cal.Encode(&sb, contests, now))
	return sb.String()
}

func TestCalendar_Encode(t *testing.T) {
	cal := ics.Calendar{Name: "CLIST Contests", ProdID: "-//CLIST Import//EN"}
	out := encode(t, cal, testContests())

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "PRODID:-//CLIST Import//EN\r\n")
	assert.Contains(t, out, "VERSION:2.0\r\n")
	assert.Contains(t, out, "X-WR-CALNAME:CLIST Contests\r\n")

	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 3, strings.Count(out, "END:VEVENT"))

	assert.Contains(t, out, "UID:1@clist.by\r\n")
	assert.Contains(t, out, "DTSTART:20240302T100000Z\r\n")
	assert.Contains(t, out, "DTEND:20240302T113000Z\r\n")
	assert.Contains(t, out, "SUMMARY:LeetCode: Weekly Contest 400\r\n")
	assert.Contains(t, out, "CATEGORIES:Codeforces\r\n")

	// A comma inside the title must be escaped in the summary line.
	assert.Contains(t, out, `SUMMARY:Codeforces: Round 930\, Div. 2`)

	// Every event gets its DTSTAMP from the instant handed to Encode.
	assert.Equal(t, 3, strings.Count(out, "DTSTAMP:20240301T090000Z"))

	// The third contest has no URL, so only two URL lines appear.
	assert.Equal(t, 2, strings.Count(out, "\r\nURL:"))
}

func TestCalendar_Encode_Deterministic(t *testing.T) {
	cal := ics.Calendar{Name: "CLIST Contests", ProdID: "-//CLIST Import//EN"}
	assert.Equal(t, encode(t, cal, testContests()), encode(t, cal, testContests()))
}

func TestCalendar_Encode_EmptyNameOmitted(t *testing.T) {
	cal := ics.Calendar{ProdID: "-//CLIST Import//EN"}
	out := encode(t, cal, nil)
	assert.NotContains(t, out, "X-WR-CALNAME")
}

func TestCalendar_Encode_FoldsLongLines(t *testing.T) {
	contests := testContests()[:1]
	contests[0].Title = strings.Repeat("Very Long Contest Name ", 10)

	out := encode(t, ics.Calendar{ProdID: "p"}, contests)

	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, len(line), 75, "unfolded line: %q", line)
	}

	// Unfolding (dropping CRLF + space) restores the full summary.
	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Contains(t, unfolded, "SUMMARY:"+ics.Escape(contests[0].Summary()))
}

func TestCalendar_Encode_FoldsOnRuneBoundaries(t *testing.T) {
	// Chinese titles are routine on luogu and nowcoder. Folding must not
	// cut through a multi-byte character.
	contests := testContests()[:1]
	contests[0].Title = strings.Repeat("洛谷月赛", 10)
	contests[0].Resource = "Luogu"

	out := encode(t, ics.Calendar{ProdID: "p"}, contests)

	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, len(line), 75, "unfolded line: %q", line)
		assert.True(t, utf8.ValidString(line), "folded line is not valid UTF-8: %q", line)
	}

	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Contains(t, unfolded, "SUMMARY:"+ics.Escape(contests[0].Summary()))
	assert.Contains(t, unfolded, contests[0].Title)
}

func TestEscape(t *testing.T) {
	for _, tt := range []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a,b", `a\,b`},
		{"a;b", `a\;b`},
		{"a\nb", `a\nb`},
		{`a\b`, `a\\b`},
		{"all,of;it\\\n", `all\,of\;it\\\n`},
	} {
		assert.Equal(t, tt.want, ics.Escape(tt.in))
	}
}

func TestFormatDateTime_RoundTrip(t *testing.T) {
	parsed, err := clistcal.ParseTime("2024-03-01T12:34:56+00:00")
	require.NoError(t, err)
	assert.Equal(t, "20240301T123456Z", ics.FormatDateTime(parsed))

	// Rendering the parsed instant reproduces the same moment in time.
	back, err := time.Parse("20060102T150405Z", ics.FormatDateTime(parsed))
	require.NoError(t, err)
	assert.True(t, back.Equal(parsed))
}
