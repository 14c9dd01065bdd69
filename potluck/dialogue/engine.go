// Package dialogue implements the event-creation and RSVP conversations as
// an explicit state machine. The engine never talks to Telegram: it takes
// one Input per step and returns the replies to send, leaving session
// bookkeeping and delivery to the transport adapter.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// ErrValidation marks input that does not qualify for the current step. The
// engine recovers from it by re-prompting; it never reaches the transport.
var ErrValidation = errors.New("dialogue: input does not match step")

// EventStore is the subset of event persistence the dialogues need.
type EventStore interface {
	CreateEvent(ctx context.Context, in model.NewEvent) (*model.Event, error)
	GetEventByIDAndToken(ctx context.Context, id, token string) (*model.Event, error)
}

// RsvpStore is the subset of RSVP and dish persistence the dialogues need.
type RsvpStore interface {
	GetRsvp(ctx context.Context, eventID string, userID int64) (*model.Rsvp, error)
	GetAttendeeCount(ctx context.Context, eventID string) (int, error)
	UpsertRsvpWithinCapacity(ctx context.Context, eventID string, userID int64, status model.RsvpStatus, guests int) (*model.Rsvp, error)
	GetAllAllergens(ctx context.Context) ([]model.Allergen, error)
	AddDish(ctx context.Context, rsvpID string, category model.DishCategory, description string, allergenIDs []int) (*model.DishWithAllergens, error)
}

// UserStore records the people the bot talks to.
type UserStore interface {
	UpsertUser(ctx context.Context, id int64, username, displayName string) (*model.User, error)
}

// Identity is who is talking and where.
type Identity struct {
	UserID      int64
	ChatID      int64
	Username    string
	DisplayName string
}

// GeoPoint is a shared location.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Input is one inbound message or button press. At most one field is set.
type Input struct {
	Text      string
	Location  *GeoPoint
	Selection *intent.Intent
}

// Button is an inline option offered with a reply.
type Button struct {
	Label        string
	Data         string
	URL          string
	SwitchInline string
}

// Reply is one outbound MarkdownV2 message.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Outcome tells how a finished dialogue ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAborted
	OutcomeDeclined
	OutcomeCapacityRejected
	OutcomeCompleted
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAborted:
		return "aborted"
	case OutcomeDeclined:
		return "declined"
	case OutcomeCapacityRejected:
		return "capacity_rejected"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCreated:
		return "created"
	}
	return "none"
}

// Output is the engine's answer to one Input.
type Output struct {
	// Ack is the toast shown when the input was a button press.
	Ack     string
	Replies []Reply
	Done    bool
	Outcome Outcome
	// Event is set once the dialogue has created or answered an event.
	Event *model.Event
}

func (o *Output) say(text string, rows ...[]Button) {
	o.Replies = append(o.Replies, Reply{Text: text, Buttons: rows})
}

func (o *Output) finish(outcome Outcome) {
	o.Done = true
	o.Outcome = outcome
}

// Options tunes the engine.
type Options struct {
	// Location is used for dates typed without an offset. Defaults to UTC.
	Location *time.Location
}

// Engine runs both dialogues over injected stores.
type Engine struct {
	events EventStore
	rsvps  RsvpStore
	users  UserStore
	gate   *access.Gate
	loc    *time.Location
}

// NewEngine wires an engine.
func NewEngine(events EventStore, rsvps RsvpStore, users UserStore, opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		events: events,
		rsvps:  rsvps,
		users:  users,
		gate:   access.NewGate(events),
		loc:    loc,
	}
}

type stepFunc func(e *Engine, ctx context.Context, st *State, in Input, out *Output) error

var steps = map[Step]stepFunc{
	StepTitle:           (*Engine).handleTitle,
	StepDescription:     (*Engine).handleDescription,
	StepLocation:        (*Engine).handleLocation,
	StepDate:            (*Engine).handleDate,
	StepMaxAttendees:    (*Engine).handleMaxAttendees,
	StepFoodMode:        (*Engine).handleFoodMode,
	StepStatus:          (*Engine).handleStatus,
	StepGuests:          (*Engine).handleGuests,
	StepGuestNumber:     (*Engine).handleGuestNumber,
	StepCategory:        (*Engine).handleCategory,
	StepDishDescription: (*Engine).handleDishDescription,
	StepAllergens:       (*Engine).handleAllergens,
}

// Handle advances st by one input. st is updated in place; when the returned
// Output is Done the session should be discarded. Store failures are
// returned as errors and leave the dialogue unusable.
func (e *Engine) Handle(ctx context.Context, st *State, in Input) (Output, error) {
	var out Output
	if st == nil {
		return out, fmt.Errorf("dialogue: handle: nil state")
	}
	fn, ok := steps[st.Step]
	if !ok {
		return out, fmt.Errorf("dialogue: handle: unknown step %q", st.Step)
	}
	err := fn(e, ctx, st, in, &out)
	if errors.Is(err, ErrValidation) {
		e.reprompt(st, in, &out)
		return out, nil
	}
	if err != nil {
		return Output{}, err
	}
	return out, nil
}

// Prompt returns the prompt for the current step, used when a session is
// resumed by a stray message.
func (e *Engine) Prompt(st *State) Reply {
	return e.promptFor(st)
}

func (e *Engine) reprompt(st *State, in Input, out *Output) {
	if in.Selection != nil {
		out.Ack = "That button belongs to another question."
	}
	p := e.promptFor(st)
	out.say(p.Text, p.Buttons...)
}

func (e *Engine) touchUser(ctx context.Context, who Identity) error {
	if _, err := e.users.UpsertUser(ctx, who.UserID, who.Username, who.DisplayName); err != nil {
		return fmt.Errorf("dialogue: upsert user: %w", err)
	}
	return nil
}

func isSkip(in Input) bool {
	if in.Selection != nil {
		return in.Selection.Kind == intent.KindSkip
	}
	return in.Text == "/skip"
}

func selection(in Input, kind intent.Kind) (intent.Intent, bool) {
	if in.Selection == nil || in.Selection.Kind != kind {
		return intent.Intent{}, false
	}
	return *in.Selection, true
}
