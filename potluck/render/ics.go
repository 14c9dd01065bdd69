package render

import (
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/m3rciful/potluckbot/potluck/model"
)

// ErrNoDate is returned when exporting an event without a date.
var ErrNoDate = errors.New("render: event has no date")

// DefaultDuration is the assumed length of an event in calendar exports.
const DefaultDuration = 3 * time.Hour

// Calendar renders the event as an iCalendar document. link, when set, is
// attached as the event URL.
func Calendar(ev *model.Event, now time.Time, link string) (string, error) {
	if ev.EventDate == nil {
		return "", ErrNoDate
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//potluckbot//EN")

	ve := cal.AddEvent(ev.ID + "@potluckbot")
	ve.SetDtStampTime(now.UTC())
	ve.SetCreatedTime(ev.CreatedAt.UTC())
	ve.SetModifiedAt(ev.UpdatedAt.UTC())
	ve.SetStartAt(ev.EventDate.UTC())
	ve.SetEndAt(ev.EventDate.Add(DefaultDuration).UTC())
	ve.SetSummary(ev.Title)
	if ev.Description != nil {
		ve.SetDescription(*ev.Description)
	}
	if ev.Location != nil {
		ve.SetLocation(*ev.Location)
	}
	if link != "" {
		ve.SetURL(link)
	}
	if ev.Status == model.EventCancelled {
		ve.SetStatus(ical.ObjectStatusCancelled)
	} else {
		ve.SetStatus(ical.ObjectStatusConfirmed)
	}
	return cal.Serialize(), nil
}
