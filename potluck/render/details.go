package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/potluck/capacity"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// DetailsView is everything shown on an event's details page.
type DetailsView struct {
	Event  *model.Event
	Rsvps  []model.Rsvp
	Dishes []model.DishWithAllergens
	Users  map[int64]*model.User
	Loc    *time.Location
}

// Details renders the attendee lists, dishes and menu summary as MarkdownV2.
func Details(v DetailsView) string {
	ev := v.Event
	var b strings.Builder
	b.WriteString(format.Bold(ev.Title))
	switch ev.Status {
	case model.EventCancelled:
		b.WriteString(" " + format.Italic("(cancelled)"))
	case model.EventCompleted:
		b.WriteString(" " + format.Italic("(completed)"))
	}
	if ev.Description != nil {
		b.WriteString("\n" + format.Italic(*ev.Description))
	}
	if ev.EventDate != nil {
		b.WriteString("\n📅 " + format.Escape(When(ev.EventDate, v.Loc)))
	}
	if ev.Location != nil {
		b.WriteString("\n📍 " + format.Escape(*ev.Location))
	}

	dishesByRsvp := make(map[string][]model.DishWithAllergens)
	for _, d := range v.Dishes {
		dishesByRsvp[d.RsvpID] = append(dishesByRsvp[d.RsvpID], d)
	}

	var going, maybe []model.Rsvp
	maybeCount := 0
	for _, r := range v.Rsvps {
		switch r.Status {
		case model.RsvpGoing:
			going = append(going, r)
		case model.RsvpMaybe:
			maybe = append(maybe, r)
			maybeCount += 1 + r.GuestCount
		}
	}

	goingHeader := fmt.Sprintf("Going (%d", capacity.Count(going))
	if ev.MaxAttendees != nil {
		goingHeader += fmt.Sprintf("/%d", *ev.MaxAttendees)
	}
	b.WriteString("\n\n" + format.Bold(goingHeader+"):") + "\n")
	b.WriteString(attendeeLines(going, dishesByRsvp, v.Users, "None yet"))
	b.WriteString("\n\n" + format.Bold(fmt.Sprintf("Maybe (%d):", maybeCount)) + "\n")
	b.WriteString(attendeeLines(maybe, dishesByRsvp, v.Users, "None"))
	b.WriteString("\n\n" + format.Bold("Menu:") + " " + format.Escape(MenuSummary(v.Dishes)))
	return b.String()
}

func attendeeLines(rsvps []model.Rsvp, dishes map[string][]model.DishWithAllergens, users map[int64]*model.User, empty string) string {
	if len(rsvps) == 0 {
		return format.Italic(empty)
	}
	lines := make([]string, 0, len(rsvps))
	for _, r := range rsvps {
		name := fmt.Sprintf("User %d", r.UserID)
		if u, ok := users[r.UserID]; ok {
			name = u.Name()
		}
		guests := ""
		if r.GuestCount > 0 {
			guests = fmt.Sprintf(" (+%d)", r.GuestCount)
		}
		mine := dishes[r.ID]
		if len(mine) == 0 {
			lines = append(lines, format.Escape("• "+name+guests))
			continue
		}
		for _, d := range mine {
			line := "• " + name + guests + ": " + d.Description
			if tags := AllergenTags(d.Allergens); tags != "" {
				line += " " + tags
			}
			lines = append(lines, format.Escape(line))
		}
	}
	return strings.Join(lines, "\n")
}

// MenuSummary counts dishes per category in vocabulary order, e.g.
// "Main: 2, Dessert: 1".
func MenuSummary(dishes []model.DishWithAllergens) string {
	counts := make(map[model.DishCategory]int)
	for _, d := range dishes {
		counts[d.Category]++
	}
	var parts []string
	for _, c := range model.DishCategories {
		if n := counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", c.Label(), n))
		}
	}
	if len(parts) == 0 {
		return "No dishes yet"
	}
	return strings.Join(parts, ", ")
}
