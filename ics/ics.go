// Package ics serializes contests into iCalendar text.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"clistcal"
)

// maxLineOctets is the iCalendar content line limit before folding applies.
const maxLineOctets = 75

// Calendar holds the calendar-level properties of the output file.
type Calendar struct {
	// Stored in X-WR-CALNAME. Omitted from the output when empty.
	Name string

	// Stored in PRODID.
	ProdID string
}

// Encode writes the contests as a VCALENDAR to w. The passed now is used for
// the DTSTAMP fields so output is deterministic given identical input.
func (cal *Calendar) Encode(w io.Writer, contests []*clistcal.Contest, now time.Time) error {
	lines := []string{
		"BEGIN:VCALENDAR",
		foldLine("PRODID:" + cal.ProdID),
		"VERSION:2.0",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	if cal.Name != "" {
		lines = append(lines, foldLine("X-WR-CALNAME:"+Escape(cal.Name)))
	}

	stamp := FormatDateTime(now)
	for _, contest := range contests {
		lines = append(lines,
			"BEGIN:VEVENT",
			foldLine(fmt.Sprintf("UID:%d@clist.by", contest.ID)),
			foldLine("DTSTAMP:"+stamp),
			foldLine("DTSTART:"+FormatDateTime(contest.Start)),
			foldLine("DTEND:"+FormatDateTime(contest.End)),
			foldLine("SUMMARY:"+Escape(contest.Summary())),
			foldLine("DESCRIPTION:"+Escape(contest.Description())),
		)
		if contest.URL != "" {
			lines = append(lines, foldLine("URL:"+Escape(contest.URL)))
		}
		lines = append(lines,
			foldLine("CATEGORIES:"+Escape(contest.Resource)),
			"END:VEVENT",
		)
	}

	lines = append(lines, "END:VCALENDAR")

	_, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n")
	return err
}

// FormatDateTime renders an instant in the iCalendar UTC timestamp syntax.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\n", `\n`,
)

// Escape applies the iCalendar TEXT value escaping rule.
func Escape(value string) string {
	return escaper.Replace(value)
}

// foldLine folds a content line exceeding the octet limit. Continuation
// lines start with a single space and carry one octet less of payload.
// Cuts never land inside a UTF-8 sequence, the output must stay valid UTF-8.
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	n := cutPoint(line, maxLineOctets)
	segments := []string{line[:n]}
	remainder := line[n:]
	for len(remainder) > 0 {
		n = cutPoint(remainder, maxLineOctets-1)
		segments = append(segments, " "+remainder[:n])
		remainder = remainder[n:]
	}
	return strings.Join(segments, "\r\n")
}

// cutPoint returns how many octets of s fit into max without splitting a
// UTF-8 sequence.
func cutPoint(s string, max int) int {
	if len(s) <= max {
		return len(s)
	}
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		// Nothing but continuation bytes, the input was not UTF-8 anyway.
		return max
	}
	return n
}
