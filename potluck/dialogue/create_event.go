package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/core/telegram/helpers"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// StartCreate opens the event-creation dialogue. A nil state with a Done
// output means the dialogue ended before its first step.
func (e *Engine) StartCreate(ctx context.Context, who Identity) (*State, Output, error) {
	var out Output
	if who.UserID == 0 {
		out.say(format.Escape(msgNoUser))
		out.finish(OutcomeAborted)
		return nil, out, nil
	}
	if err := e.touchUser(ctx, who); err != nil {
		return nil, Output{}, err
	}
	st := &State{Kind: KindCreateEvent, Step: StepTitle, User: who}
	e.advance(st, StepTitle, &out)
	logger.Debug(ctx, "dialogue", "create.start")
	return st, out, nil
}

func (e *Engine) advance(st *State, next Step, out *Output) {
	st.Step = next
	p := e.promptFor(st)
	out.say(p.Text, p.Buttons...)
}

func (e *Engine) handleTitle(_ context.Context, st *State, in Input, out *Output) error {
	if in.Text == "" || in.Selection != nil {
		return ErrValidation
	}
	st.Draft.Title = in.Text
	e.advance(st, StepDescription, out)
	return nil
}

func (e *Engine) handleDescription(_ context.Context, st *State, in Input, out *Output) error {
	switch {
	case isSkip(in):
		st.Draft.Description = nil
	case in.Selection == nil && strings.TrimSpace(in.Text) != "":
		st.Draft.Description = format.StringPtr(strings.TrimSpace(in.Text))
	default:
		return ErrValidation
	}
	e.advance(st, StepLocation, out)
	return nil
}

func (e *Engine) handleLocation(_ context.Context, st *State, in Input, out *Output) error {
	switch {
	case isSkip(in):
		st.Draft.Location = nil
	case in.Location != nil:
		loc := strconv.FormatFloat(in.Location.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(in.Location.Lon, 'f', -1, 64)
		st.Draft.Location = &loc
	case in.Selection == nil && strings.TrimSpace(in.Text) != "":
		st.Draft.Location = format.StringPtr(strings.TrimSpace(in.Text))
	default:
		return ErrValidation
	}
	e.advance(st, StepDate, out)
	return nil
}

func (e *Engine) handleDate(_ context.Context, st *State, in Input, out *Output) error {
	switch {
	case isSkip(in):
		st.Draft.EventDate = nil
	case in.Selection == nil && strings.TrimSpace(in.Text) != "":
		when, ok := helpers.ParseFlexibleDateIn(in.Text, e.loc)
		if !ok {
			st.Draft.EventDate = nil
			out.say(format.Escape(msgBadDate))
			break
		}
		utc := when.UTC()
		st.Draft.EventDate = &utc
	default:
		return ErrValidation
	}
	e.advance(st, StepMaxAttendees, out)
	return nil
}

func (e *Engine) handleMaxAttendees(_ context.Context, st *State, in Input, out *Output) error {
	sel, ok := selection(in, intent.KindMax)
	if !ok {
		return ErrValidation
	}
	st.Draft.MaxAttendees = nil
	if sel.Value != intent.ValueUnlimited {
		n, err := strconv.Atoi(sel.Value)
		if err != nil {
			return ErrValidation
		}
		st.Draft.MaxAttendees = &n
	}
	e.advance(st, StepFoodMode, out)
	return nil
}

// handleFoodMode accepts any input: only an explicit slots choice selects
// slots, everything else falls back to categories.
func (e *Engine) handleFoodMode(ctx context.Context, st *State, in Input, out *Output) error {
	mode := model.FoodCategories
	if sel, ok := selection(in, intent.KindFood); ok && sel.Value == string(model.FoodSlots) {
		mode = model.FoodSlots
	}
	ev, err := e.events.CreateEvent(ctx, model.NewEvent{
		CreatorID:    st.User.UserID,
		Title:        st.Draft.Title,
		Description:  st.Draft.Description,
		Location:     st.Draft.Location,
		EventDate:    st.Draft.EventDate,
		MaxAttendees: st.Draft.MaxAttendees,
		FoodMode:     mode,
	})
	if err != nil {
		return fmt.Errorf("dialogue: create event: %w", err)
	}
	p := e.createdSummary(ev)
	out.say(p.Text, p.Buttons...)
	out.Event = ev
	out.finish(OutcomeCreated)
	logger.Info(ctx, "dialogue", "create.done", logger.EventID(ev.ID))
	return nil
}
