package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/dialogue"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
	"github.com/m3rciful/potluckbot/potluck/render"
	"github.com/m3rciful/potluckbot/potluck/storage"
)

const maxLabel = 28

func button(label string, in intent.Intent) dialogue.Button {
	return dialogue.Button{Label: label, Data: in.Data()}
}

func refOf(ev *model.Event) access.EventRef {
	return access.EventRef{ID: ev.ID, Token: ev.ShareToken}
}

// Details renders the details view for a "details_<id>_<token>" payload.
// Only active events pass the gate.
func (b *Bot) Details(ctx context.Context, payload string) (Response, error) {
	var resp Response
	ref, err := access.ParsePayload(access.PrefixDetails, payload)
	if err == nil {
		var ev *model.Event
		ev, err = b.gate.Authorize(ctx, ref)
		if err == nil {
			return b.detailsFor(ctx, ev)
		}
	}
	msg, ok := linkProblem(err)
	if !ok {
		return Response{}, fmt.Errorf("bot: details: %w", err)
	}
	resp.say(format.Escape(msg))
	return resp, nil
}

func (b *Bot) detailsFor(ctx context.Context, ev *model.Event) (Response, error) {
	rsvps, err := b.store.GetRsvpsForEvent(ctx, ev.ID)
	if err != nil {
		return Response{}, fmt.Errorf("bot: details rsvps: %w", err)
	}
	dishes, err := b.store.GetDishesForEvent(ctx, ev.ID)
	if err != nil {
		return Response{}, fmt.Errorf("bot: details dishes: %w", err)
	}
	ids := make([]int64, 0, len(rsvps))
	for _, r := range rsvps {
		ids = append(ids, r.UserID)
	}
	users, err := b.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return Response{}, fmt.Errorf("bot: details users: %w", err)
	}

	text := render.Details(render.DetailsView{Event: ev, Rsvps: rsvps, Dishes: dishes, Users: users, Loc: b.loc})
	var row []dialogue.Button
	if ev.IsActive() {
		row = append(row, button("🙋 RSVP", intent.RSVP(refOf(ev))))
	}
	if ev.EventDate != nil {
		row = append(row, button("📅 Add to calendar", intent.Calendar(refOf(ev))))
	}
	var resp Response
	resp.say(text, row)
	logger.Debug(ctx, "service.events", "details.view",
		logger.EventID(ev.ID),
		slog.Int("rsvps", len(rsvps)),
		slog.Int("dishes", len(dishes)),
	)
	return resp, nil
}

// Calendar exports the event behind ref as an .ics document.
func (b *Bot) Calendar(ctx context.Context, ref access.EventRef) (Response, error) {
	ev, err := b.gate.Authorize(ctx, ref)
	if err != nil {
		if msg, ok := linkProblem(err); ok {
			return Response{Ack: msg, Alert: true}, nil
		}
		return Response{}, fmt.Errorf("bot: calendar: %w", err)
	}
	ics, err := render.Calendar(ev, b.now(), b.DeepLink(ref.Payload(access.PrefixDetails)))
	if errors.Is(err, render.ErrNoDate) {
		return Response{Ack: msgNoDate, Alert: true}, nil
	}
	if err != nil {
		return Response{}, fmt.Errorf("bot: calendar: %w", err)
	}
	return Response{
		Ack: "Calendar file on its way",
		Document: &Document{
			Name:    fileSlug(ev.Title) + ".ics",
			MIME:    "text/calendar",
			Caption: ev.Title,
			Body:    []byte(ics),
		},
	}, nil
}

// fileSlug lowercases title and keeps letters and digits, joining the rest
// with dashes.
func fileSlug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "event"
	}
	return slug
}

// ownedEvent loads id and checks that who created it.
func (b *Bot) ownedEvent(ctx context.Context, who dialogue.Identity, id string) (*model.Event, *Response, error) {
	ev, err := b.store.GetEventByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("bot: load event: %w", err)
	}
	if ev == nil {
		return nil, &Response{Ack: msgNotFound, Alert: true}, nil
	}
	if who.UserID == 0 || ev.CreatorID != who.UserID {
		return nil, &Response{Ack: msgNotCreator, Alert: true}, nil
	}
	return ev, nil, nil
}

func (b *Bot) manageReply(ev *model.Event) dialogue.Reply {
	var s strings.Builder
	s.WriteString(format.Escape("Manage ") + format.Bold(ev.Title))
	s.WriteString("\n" + format.Escapef("Status: %s", ev.Status))
	if ev.EventDate != nil {
		s.WriteString("\n📅 " + format.Escape(render.When(ev.EventDate, b.loc)))
	}
	if ev.AllowGuests {
		s.WriteString("\n" + format.Escape("Guests: allowed"))
	} else {
		s.WriteString("\n" + format.Escape("Guests: not allowed"))
	}

	var rows [][]dialogue.Button
	if ev.IsActive() {
		if ev.AllowGuests {
			rows = append(rows, []dialogue.Button{button("🚫 Disallow guests", intent.GuestsOff(ev.ID))})
		} else {
			rows = append(rows, []dialogue.Button{button("➕ Allow guests", intent.GuestsOn(ev.ID))})
		}
		rows = append(rows, []dialogue.Button{button("❌ Cancel event", intent.CancelEvent(ev.ID))})
	}
	rows = append(rows, []dialogue.Button{button("👀 Details", intent.Details(refOf(ev)))})
	return dialogue.Reply{Text: s.String(), Buttons: rows}
}

// Manage shows the organiser's management menu for an event.
func (b *Bot) Manage(ctx context.Context, who dialogue.Identity, eventID string) (Response, error) {
	ev, deny, err := b.ownedEvent(ctx, who, eventID)
	if err != nil || deny != nil {
		return deref(deny), err
	}
	var resp Response
	r := b.manageReply(ev)
	resp.say(r.Text, r.Buttons...)
	return resp, nil
}

// SetGuests allows or forbids extra guests on an active event.
func (b *Bot) SetGuests(ctx context.Context, who dialogue.Identity, eventID string, allow bool) (Response, error) {
	ev, deny, err := b.ownedEvent(ctx, who, eventID)
	if err != nil || deny != nil {
		return deref(deny), err
	}
	if !ev.IsActive() {
		return Response{Ack: msgClosed, Alert: true}, nil
	}
	ev, err = b.update(ctx, ev.ID, model.EventPatch{AllowGuests: &allow})
	if err != nil || ev == nil {
		return Response{Ack: msgNotFound, Alert: true}, err
	}
	ack := "Guests are no longer allowed"
	if allow {
		ack = "Guests are allowed"
	}
	r := b.manageReply(ev)
	return Response{Ack: ack, Edit: &r}, nil
}

// CancelEvent marks an active event cancelled. It stops accepting RSVPs.
func (b *Bot) CancelEvent(ctx context.Context, who dialogue.Identity, eventID string) (Response, error) {
	ev, deny, err := b.ownedEvent(ctx, who, eventID)
	if err != nil || deny != nil {
		return deref(deny), err
	}
	if !ev.IsActive() {
		return Response{Ack: fmt.Sprintf("This event is already %s.", ev.Status), Alert: true}, nil
	}
	status := model.EventCancelled
	ev, err = b.update(ctx, ev.ID, model.EventPatch{Status: &status})
	if err != nil || ev == nil {
		return Response{Ack: msgNotFound, Alert: true}, err
	}
	r := b.manageReply(ev)
	return Response{Ack: "Event cancelled", Edit: &r}, nil
}

func (b *Bot) update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	ev, err := b.store.UpdateEvent(ctx, id, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bot: update event: %w", err)
	}
	logger.Info(ctx, "service.events", "event.updated", logger.EventID(id), slog.String("status", string(ev.Status)))
	return ev, nil
}

func deref(r *Response) Response {
	if r == nil {
		return Response{}
	}
	return *r
}

// MyEvents lists the caller's active events.
func (b *Bot) MyEvents(ctx context.Context, who dialogue.Identity) (Response, error) {
	var resp Response
	events, err := b.store.GetEventsByCreator(ctx, who.UserID)
	if err != nil {
		return Response{}, fmt.Errorf("bot: my events: %w", err)
	}
	if len(events) == 0 {
		resp.say(format.Escape("You have no active events. Use /create to plan one."))
		return resp, nil
	}

	lines := []string{format.Bold("Your events:")}
	rows := make([][]dialogue.Button, 0, len(events))
	for i := range events {
		ev := &events[i]
		count, err := b.store.GetAttendeeCount(ctx, ev.ID)
		if err != nil {
			return Response{}, fmt.Errorf("bot: my events count: %w", err)
		}
		line := format.Escape("• ") + format.Bold(ev.Title) + format.Escape(" · "+render.Capacity(count, ev.MaxAttendees))
		if ev.EventDate != nil {
			line += format.Escape(" · " + render.When(ev.EventDate, b.loc))
		}
		if link := b.DeepLink(refOf(ev).Payload(access.PrefixRSVP)); link != "" {
			line += format.Escape(" · ") + format.Link("invite link", link)
		}
		lines = append(lines, line)
		rows = append(rows, []dialogue.Button{
			button("👀 "+shorten(ev.Title, maxLabel), intent.Details(refOf(ev))),
			button("✏️ Manage", intent.Edit(ev.ID)),
		})
	}
	resp.say(strings.Join(lines, "\n"), rows...)
	return resp, nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Card is one inline query result.
type Card struct {
	ID          string
	Title       string
	Description string
	Text        string
	Buttons     [][]dialogue.Button
}

// InlineCards returns shareable cards for the caller's active events. A
// non-empty query narrows the list to matching titles when anything matches.
// Without events a single card invites the caller to create one.
func (b *Bot) InlineCards(ctx context.Context, who dialogue.Identity, query string) ([]Card, error) {
	events, err := b.store.GetEventsByCreator(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("bot: inline events: %w", err)
	}
	if len(events) == 0 {
		card := Card{
			ID:          "create",
			Title:       "Create your first event",
			Description: "Plan a potluck in a private chat with the bot",
			Text:        format.Escape("Let's plan a potluck! Tap the button below to create an event."),
		}
		if link := b.DeepLink("create"); link != "" {
			card.Buttons = [][]dialogue.Button{{{Label: "Create event", URL: link}}}
		}
		return []Card{card}, nil
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		var matched []model.Event
		for _, ev := range events {
			if strings.Contains(strings.ToLower(ev.Title), q) {
				matched = append(matched, ev)
			}
		}
		if len(matched) > 0 {
			events = matched
		}
	}

	now := b.now()
	cards := make([]Card, 0, len(events))
	for i := range events {
		ev := &events[i]
		count, err := b.store.GetAttendeeCount(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("bot: inline count: %w", err)
		}
		view := render.CardView{Event: ev, Count: count, Loc: b.loc, Now: now}
		cards = append(cards, Card{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: render.CardDescription(view),
			Text:        render.Card(view),
			Buttons: [][]dialogue.Button{{
				button("🙋 RSVP", intent.RSVP(refOf(ev))),
				button("👀 View details", intent.Details(refOf(ev))),
			}},
		})
	}
	return cards, nil
}
