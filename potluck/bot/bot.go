// Package bot connects the potluck dialogues, views and maintenance jobs to
// Telegram. The exported methods on Bot that take a context and return a
// Response hold the behaviour; telegram.go only translates updates into
// those calls and Responses back into Telegram messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/core/telegram/state"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/dialogue"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// Store is everything the bot reads and writes.
type Store interface {
	dialogue.EventStore
	dialogue.RsvpStore
	dialogue.UserStore

	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetEventsByCreator(ctx context.Context, creatorID int64) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	GetRsvpsForEvent(ctx context.Context, eventID string) ([]model.Rsvp, error)
	GetDishesForEvent(ctx context.Context, eventID string) ([]model.DishWithAllergens, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

// Sweeper completes past events on demand.
type Sweeper interface {
	RunOnce(ctx context.Context) (int64, error)
}

// Options configures a Bot.
type Options struct {
	Store   Store
	Sweeper Sweeper
	// Location is used to show and parse event dates. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
}

// Bot is the potluck Telegram front end.
type Bot struct {
	store    Store
	sweeper  Sweeper
	engine   *dialogue.Engine
	gate     *access.Gate
	sessions *state.Store[dialogue.State]
	loc      *time.Location
	now      func() time.Time
	username atomic.Pointer[string]
}

// New wires a Bot over opts.Store.
func New(opts Options) (*Bot, error) {
	if opts.Store == nil {
		return nil, errors.New("bot: nil store")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		store:    opts.Store,
		sweeper:  opts.Sweeper,
		engine:   dialogue.NewEngine(opts.Store, opts.Store, opts.Store, dialogue.Options{Location: loc}),
		gate:     access.NewGate(opts.Store),
		sessions: state.NewStore[dialogue.State](),
		loc:      loc,
		now:      now,
	}, nil
}

// SetUsername records the bot's public username, used to build deep links.
func (b *Bot) SetUsername(name string) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	b.username.Store(&name)
}

// Username returns the name set by SetUsername, or "".
func (b *Bot) Username() string {
	if p := b.username.Load(); p != nil {
		return *p
	}
	return ""
}

// DeepLink returns the t.me link that opens a private chat with payload as
// the /start argument, or "" while the username is unknown.
func (b *Bot) DeepLink(payload string) string {
	name := b.Username()
	if name == "" {
		return ""
	}
	return "https://t.me/" + name + "?start=" + payload
}

// Document is a file to upload.
type Document struct {
	Name    string
	MIME    string
	Caption string
	Body    []byte
}

// Response is what the transport should do in reply to one update.
type Response struct {
	// Ack answers a button press. Alert shows it as a modal.
	Ack   string
	Alert bool
	// URL answers a button press by opening a link instead.
	URL string
	// Edit replaces the message carrying the pressed button.
	Edit     *dialogue.Reply
	Replies  []dialogue.Reply
	Document *Document
}

func (r *Response) say(text string, rows ...[]dialogue.Button) {
	r.Replies = append(r.Replies, dialogue.Reply{Text: text, Buttons: rows})
}

func fromOutput(out dialogue.Output) Response {
	return Response{Ack: out.Ack, Replies: out.Replies}
}

const (
	msgWelcome      = "Welcome to Potluck Bot! Use /create to plan a potluck, /myevents to manage yours, or open an invite link to RSVP."
	msgInvalidLink  = "Invalid link."
	msgNotFound     = "Event not found."
	msgClosed       = "This event is no longer accepting RSVPs."
	msgExpired      = "This question has expired. Open the invite link again to start over."
	msgUnsupported  = "Unsupported action"
	msgCancelled    = "Cancelled. Nothing was saved for the unfinished dialogue."
	msgNothingToEnd = "There is nothing to cancel."
	msgNotCreator   = "Only the organiser can manage this event."
	msgNoDate       = "This event has no date yet."
	msgFailure      = "Something went wrong. Please try again."
)

// linkProblem maps gate errors to the text shown to the user.
func linkProblem(err error) (string, bool) {
	switch {
	case errors.Is(err, access.ErrInvalidLink):
		return msgInvalidLink, true
	case errors.Is(err, access.ErrNotFound):
		return msgNotFound, true
	case errors.Is(err, access.ErrEventClosed):
		return msgClosed, true
	}
	return "", false
}

// Start handles /start with an optional deep-link payload.
func (b *Bot) Start(ctx context.Context, key state.Key, who dialogue.Identity, payload string) (Response, error) {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == "":
		var resp Response
		resp.say(format.Escape(msgWelcome))
		return resp, nil
	case payload == "create":
		return b.Create(ctx, key, who)
	case strings.HasPrefix(payload, access.PrefixRSVP+"_"):
		return b.begin(ctx, key, func() (*dialogue.State, dialogue.Output, error) {
			return b.engine.StartRSVP(ctx, who, payload)
		})
	case strings.HasPrefix(payload, access.PrefixDetails+"_"):
		return b.Details(ctx, payload)
	}
	var resp Response
	resp.say(format.Escape(msgInvalidLink))
	return resp, nil
}

// Create opens the event-creation dialogue, replacing any dialogue in
// progress for the same chat and user.
func (b *Bot) Create(ctx context.Context, key state.Key, who dialogue.Identity) (Response, error) {
	return b.begin(ctx, key, func() (*dialogue.State, dialogue.Output, error) {
		return b.engine.StartCreate(ctx, who)
	})
}

func (b *Bot) begin(ctx context.Context, key state.Key, start func() (*dialogue.State, dialogue.Output, error)) (Response, error) {
	var resp Response
	err := b.sessions.Do(key, func(*dialogue.State) (*dialogue.State, error) {
		st, out, err := start()
		if err != nil {
			return nil, err
		}
		resp = fromOutput(out)
		if out.Done || st == nil {
			b.logEnd(ctx, "", out)
			return nil, nil
		}
		logger.Debug(ctx, "dialogue", "session.start", slog.String("kind", string(st.Kind)))
		return st, nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("bot: start dialogue: %w", err)
	}
	return resp, nil
}

// Active reports whether a dialogue is waiting for input under key.
func (b *Bot) Active(key state.Key) bool {
	return b.sessions.Active(key)
}

// Input feeds one message or button press to the dialogue under key. The
// boolean is false when no dialogue was waiting.
func (b *Bot) Input(ctx context.Context, key state.Key, in dialogue.Input) (Response, bool, error) {
	var (
		resp    Response
		handled bool
	)
	err := b.sessions.Do(key, func(cur *dialogue.State) (*dialogue.State, error) {
		if cur == nil {
			return nil, nil
		}
		handled = true
		kind := cur.Kind
		out, err := b.engine.Handle(ctx, cur, in)
		if err != nil {
			return nil, err
		}
		resp = fromOutput(out)
		if out.Done {
			b.logEnd(ctx, kind, out)
			return nil, nil
		}
		// A toggle only acknowledges; refresh the keyboard in place.
		if in.Selection != nil && len(out.Replies) == 0 && cur.Step == dialogue.StepAllergens {
			p := b.engine.Prompt(cur)
			resp.Edit = &p
		}
		return cur, nil
	})
	if err != nil {
		return Response{}, handled, fmt.Errorf("bot: dialogue input: %w", err)
	}
	return resp, handled, nil
}

func (b *Bot) logEnd(ctx context.Context, kind dialogue.Kind, out dialogue.Output) {
	attrs := []slog.Attr{slog.String("outcome", out.Outcome.String())}
	if kind != "" {
		attrs = append(attrs, slog.String("kind", string(kind)))
	}
	if out.Event != nil {
		attrs = append(attrs, logger.EventID(out.Event.ID))
	}
	logger.Info(ctx, "dialogue", "session.end", attrs...)
}

// Cancel drops the dialogue under key.
func (b *Bot) Cancel(ctx context.Context, key state.Key) Response {
	var resp Response
	if b.sessions.Clear(key) {
		logger.Info(ctx, "dialogue", "session.cancel")
		resp.say(format.Escape(msgCancelled))
	} else {
		resp.say(format.Escape(msgNothingToEnd))
	}
	return resp
}

// Callback handles a button press carrying data.
func (b *Bot) Callback(ctx context.Context, key state.Key, who dialogue.Identity, data string) (Response, error) {
	in, err := intent.Parse(data)
	if err != nil {
		logger.Debug(ctx, "tg", "callback.malformed", slog.String("data", logger.SanitizeLimit(data, 64)))
		return Response{Ack: msgUnsupported}, nil
	}
	if in.Kind.Dialogue() {
		resp, handled, err := b.Input(ctx, key, dialogue.Input{Selection: &in})
		if err != nil {
			return Response{}, err
		}
		if !handled {
			return Response{Ack: msgExpired, Alert: true}, nil
		}
		return resp, nil
	}

	switch in.Kind {
	case intent.KindRSVP, intent.KindDetails:
		return b.redirect(ctx, key, who, in)
	case intent.KindCalendar:
		return b.Calendar(ctx, in.Ref)
	case intent.KindEdit:
		return b.Manage(ctx, who, in.EventID)
	case intent.KindGuestsOn, intent.KindGuestsOff:
		return b.SetGuests(ctx, who, in.EventID, in.Kind == intent.KindGuestsOn)
	case intent.KindCancelEvent:
		return b.CancelEvent(ctx, who, in.EventID)
	}
	return Response{Ack: msgUnsupported}, nil
}

// redirect answers an RSVP or details button with a deep link into the
// private chat once the gate accepts the link. Links to unknown or closed
// events are never issued. Without a known username the flow is started in
// the current chat instead.
func (b *Bot) redirect(ctx context.Context, key state.Key, who dialogue.Identity, in intent.Intent) (Response, error) {
	if _, err := b.gate.Authorize(ctx, in.Ref); err != nil {
		if msg, ok := linkProblem(err); ok {
			return Response{Ack: msg, Alert: true}, nil
		}
		return Response{}, fmt.Errorf("bot: callback gate: %w", err)
	}
	payload := in.Data()
	if link := b.DeepLink(payload); link != "" {
		return Response{URL: link}, nil
	}
	return b.Start(ctx, key, who, payload)
}

// Sweep runs the lifecycle sweep immediately.
func (b *Bot) Sweep(ctx context.Context) (Response, error) {
	var resp Response
	if b.sweeper == nil {
		resp.say(format.Escape("The sweep job is not configured."))
		return resp, nil
	}
	n, err := b.sweeper.RunOnce(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("bot: sweep: %w", err)
	}
	resp.say(format.Escapef("Sweep finished: %d event(s) marked completed.", n))
	return resp, nil
}
