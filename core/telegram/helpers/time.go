package helpers

import (
	"strings"
	"time"
)

var flexibleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-1-2 15:04",
	"2006-01-02",
	"2006-1-2",
	"02.01.2006 15:04",
	"2.1.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
}

// ParseFlexibleDateIn tries several common date formats used in Telegram
// flows. Inputs without an offset are read in loc; nil means UTC.
func ParseFlexibleDateIn(input string, loc *time.Location) (time.Time, bool) {
	s := strings.Join(strings.Fields(input), " ")
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range flexibleDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
