// Package render turns potluck records into Telegram MarkdownV2 text, inline
// query cards and calendar files.
package render

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/m3rciful/potluckbot/potluck/model"
)

const dateLayout = "Mon, Jan 2 2006 at 15:04"

// When formats an optional event date in loc. Nil yields "".
func When(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// Relative describes t relative to now, e.g. "3 days from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Guests renders " (+N guests)" or "" for zero.
func Guests(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" (+%s)", english.Plural(n, "guest", ""))
}

// People renders "1 person" / "12 people".
func People(n int) string {
	return english.Plural(n, "person", "people")
}

// StatusLabel is the short human answer for a status.
func StatusLabel(s model.RsvpStatus) string {
	switch s {
	case model.RsvpGoing:
		return "Yes"
	case model.RsvpMaybe:
		return "Maybe"
	case model.RsvpDeclined:
		return "No"
	}
	return string(s)
}

// Capacity renders "7/10 spots" or "7 going" for unlimited events.
func Capacity(count int, limit *int) string {
	if limit == nil {
		return fmt.Sprintf("%s going", humanize.Comma(int64(count)))
	}
	return fmt.Sprintf("%d/%d spots", count, *limit)
}
