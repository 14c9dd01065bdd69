package render

import (
	"strings"
	"time"

	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// CardView is an event as shown in inline query results.
type CardView struct {
	Event *model.Event
	Count int
	Loc   *time.Location
	Now   time.Time
}

// CardDescription is the one-line summary under the result title.
func CardDescription(v CardView) string {
	if v.Event.Description != nil && *v.Event.Description != "" {
		return *v.Event.Description
	}
	parts := []string{Capacity(v.Count, v.Event.MaxAttendees)}
	if v.Event.EventDate != nil {
		parts = append(parts, Relative(*v.Event.EventDate, v.Now))
	}
	return strings.Join(parts, " · ")
}

// Card renders the shareable MarkdownV2 event card.
func Card(v CardView) string {
	ev := v.Event
	lines := []string{format.Bold(ev.Title)}
	if ev.Description != nil {
		lines = append(lines, format.Italic(*ev.Description))
	}
	lines = append(lines, "")
	if ev.Location != nil {
		lines = append(lines, format.Escape("📍 "+*ev.Location))
	}
	if ev.EventDate != nil {
		lines = append(lines, format.Escape("📅 "+When(ev.EventDate, v.Loc)+" ("+Relative(*ev.EventDate, v.Now)+")"))
	}
	if ev.MaxAttendees != nil {
		lines = append(lines, format.Escape("👥 Spots: "+Capacity(v.Count, ev.MaxAttendees)))
	} else {
		lines = append(lines, format.Escape("👥 Attendees: "+People(v.Count)))
	}
	return strings.Join(lines, "\n")
}
