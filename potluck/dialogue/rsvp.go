package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/capacity"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// StartRSVP opens the RSVP dialogue for a deep-link payload of the form
// "rsvp_<eventId>_<token>". Bad links, unknown events and closed events end
// the dialogue immediately with an explanation.
func (e *Engine) StartRSVP(ctx context.Context, who Identity, payload string) (*State, Output, error) {
	var out Output
	if who.UserID == 0 {
		out.say(format.Escape(msgNoUser))
		out.finish(OutcomeAborted)
		return nil, out, nil
	}
	ev, _, err := e.gate.AuthorizePayload(ctx, access.PrefixRSVP, payload)
	switch {
	case errors.Is(err, access.ErrInvalidLink):
		out.say(format.Escape(msgBadLink))
	case errors.Is(err, access.ErrNotFound):
		out.say(format.Escape(msgNotFound))
	case errors.Is(err, access.ErrEventClosed):
		out.say(format.Escape(msgClosed))
	case err != nil:
		return nil, Output{}, err
	}
	if err != nil {
		logger.Debug(ctx, "dialogue", "rsvp.rejected", logger.Err(err))
		out.finish(OutcomeAborted)
		return nil, out, nil
	}

	if err := e.touchUser(ctx, who); err != nil {
		return nil, Output{}, err
	}
	count, err := e.rsvps.GetAttendeeCount(ctx, ev.ID)
	if err != nil {
		return nil, Output{}, fmt.Errorf("dialogue: attendee count: %w", err)
	}
	existing, err := e.rsvps.GetRsvp(ctx, ev.ID, who.UserID)
	if err != nil {
		return nil, Output{}, fmt.Errorf("dialogue: existing rsvp: %w", err)
	}

	st := &State{
		Kind: KindRSVP,
		User: who,
		RSVP: RSVPDraft{Event: ev, Existing: existing, Count: count},
	}
	e.advance(st, StepStatus, &out)
	out.Event = ev
	logger.Debug(ctx, "dialogue", "rsvp.start", logger.EventID(ev.ID), slog.Int("count", count))
	return st, out, nil
}

func (e *Engine) handleStatus(ctx context.Context, st *State, in Input, out *Output) error {
	sel, ok := selection(in, intent.KindStatus)
	if !ok {
		return ErrValidation
	}
	status := model.RsvpStatus(sel.Value)
	d := &st.RSVP
	out.Event = d.Event
	if status == model.RsvpDeclined {
		d.Status, d.GuestCount = model.RsvpDeclined, 0
		saved, err := e.save(ctx, st, out)
		if err != nil || saved == nil {
			return err
		}
		d.Saved = saved
		out.say(format.Escape(msgDeclined))
		out.finish(OutcomeDeclined)
		return nil
	}
	d.Status = status
	if d.Event.AllowGuests {
		e.advance(st, StepGuests, out)
		return nil
	}
	return e.commitAttendance(ctx, st, 0, out)
}

func (e *Engine) handleGuests(ctx context.Context, st *State, in Input, out *Output) error {
	sel, ok := selection(in, intent.KindGuests)
	if !ok {
		return ErrValidation
	}
	if sel.Value == intent.ValueMore {
		e.advance(st, StepGuestNumber, out)
		return nil
	}
	n, err := strconv.Atoi(sel.Value)
	if err != nil {
		return ErrValidation
	}
	return e.commitAttendance(ctx, st, n, out)
}

// handleGuestNumber never re-asks for a typed number: anything that is not
// an integer in [0, MaxGuests] counts as zero guests.
func (e *Engine) handleGuestNumber(ctx context.Context, st *State, in Input, out *Output) error {
	if in.Selection != nil || in.Location != nil || in.Text == "" {
		return ErrValidation
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < 0 || n > model.MaxGuests {
		n = 0
		out.say(format.Escapef("That isn't a number from 0 to %d, so I'll count just you.", model.MaxGuests))
	}
	return e.commitAttendance(ctx, st, n, out)
}

// commitAttendance checks capacity for going answers, writes the RSVP and
// moves on to the dish question.
func (e *Engine) commitAttendance(ctx context.Context, st *State, guests int, out *Output) error {
	d := &st.RSVP
	d.GuestCount = guests
	ev := d.Event

	if d.Status == model.RsvpGoing && ev.MaxAttendees != nil {
		current, err := e.rsvps.GetAttendeeCount(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("dialogue: attendee count: %w", err)
		}
		existing, err := e.rsvps.GetRsvp(ctx, ev.ID, st.User.UserID)
		if err != nil {
			return fmt.Errorf("dialogue: existing rsvp: %w", err)
		}
		if v := capacity.Check(ev.MaxAttendees, current, existing, guests); v.Exceeds {
			e.reject(ctx, ev, v, out)
			return nil
		}
	}

	saved, err := e.save(ctx, st, out)
	if err != nil || saved == nil {
		return err
	}
	d.Saved = saved
	out.Event = ev
	e.advance(st, StepCategory, out)
	return nil
}

// save writes the drafted answer. The store re-checks inside its transaction
// that the event is still active and, for going answers, that the cap holds.
// A nil RSVP with a nil error means the dialogue already ended in out.
func (e *Engine) save(ctx context.Context, st *State, out *Output) (*model.Rsvp, error) {
	d := &st.RSVP
	ev := d.Event
	saved, err := e.rsvps.UpsertRsvpWithinCapacity(ctx, ev.ID, st.User.UserID, d.Status, d.GuestCount)
	var exceeded *capacity.ExceededError
	switch {
	case errors.As(err, &exceeded):
		e.reject(ctx, ev, exceeded.Verdict, out)
		return nil, nil
	case errors.Is(err, access.ErrEventClosed), errors.Is(err, access.ErrNotFound):
		out.say(format.Escape(msgClosed))
		out.finish(OutcomeAborted)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("dialogue: save rsvp: %w", err)
	}
	logger.Info(ctx, "dialogue", "rsvp.saved", logger.EventID(ev.ID), logger.RsvpID(saved.ID),
		slog.String("rsvp_status", string(d.Status)), slog.Int("guests", d.GuestCount))
	return saved, nil
}

func (e *Engine) reject(ctx context.Context, ev *model.Event, v capacity.Verdict, out *Output) {
	p := rejectionReply(ev, v)
	out.say(p.Text, p.Buttons...)
	out.Event = ev
	out.finish(OutcomeCapacityRejected)
	logger.Info(ctx, "dialogue", "rsvp.capacity_rejected", logger.EventID(ev.ID),
		slog.Int("count", v.Projected))
}

func (e *Engine) handleCategory(ctx context.Context, st *State, in Input, out *Output) error {
	sel, ok := selection(in, intent.KindCategory)
	if !ok {
		return ErrValidation
	}
	if sel.Value == intent.ValueSkip {
		e.confirm(ctx, st, nil, out)
		return nil
	}
	st.RSVP.Category = model.DishCategory(sel.Value)
	e.advance(st, StepDishDescription, out)
	return nil
}

func (e *Engine) handleDishDescription(ctx context.Context, st *State, in Input, out *Output) error {
	desc := in.Text
	if desc == "" || in.Selection != nil {
		return ErrValidation
	}
	allergens, err := e.rsvps.GetAllAllergens(ctx)
	if err != nil {
		return fmt.Errorf("dialogue: load allergens: %w", err)
	}
	st.RSVP.DishDescription = desc
	st.RSVP.Allergens = allergens
	st.RSVP.Selection = NewSelection()
	e.advance(st, StepAllergens, out)
	return nil
}

func (e *Engine) handleAllergens(ctx context.Context, st *State, in Input, out *Output) error {
	sel, ok := selection(in, intent.KindAllergen)
	if !ok {
		return ErrValidation
	}
	d := &st.RSVP
	if sel.Value == intent.ValueDone {
		dish, err := e.rsvps.AddDish(ctx, d.Saved.ID, d.Category, d.DishDescription, d.Selection.IDs())
		if err != nil {
			return fmt.Errorf("dialogue: add dish: %w", err)
		}
		e.confirm(ctx, st, dish, out)
		return nil
	}
	id, _ := sel.AllergenID()
	if !knownAllergen(d.Allergens, id) {
		out.Ack = msgUnknownAck
		return nil
	}
	if d.Selection.Toggle(id) {
		out.Ack = msgAddedAck
	} else {
		out.Ack = msgRemovedAck
	}
	return nil
}

func knownAllergen(all []model.Allergen, id int) bool {
	for _, a := range all {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) confirm(ctx context.Context, st *State, dish *model.DishWithAllergens, out *Output) {
	p := confirmationReply(st.RSVP, dish)
	out.say(p.Text, p.Buttons...)
	out.Event = st.RSVP.Event
	out.finish(OutcomeCompleted)
	logger.Info(ctx, "dialogue", "rsvp.completed", logger.EventID(st.RSVP.Event.ID),
		slog.Bool("dish", dish != nil))
}
