package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// CreateEvent inserts a new active event with a fresh share token.
func (s *Store) CreateEvent(ctx context.Context, in model.NewEvent) (*model.Event, error) {
	title := in.Title
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalid)
	}
	if in.MaxAttendees != nil && *in.MaxAttendees <= 0 {
		return nil, fmt.Errorf("%w: max attendees %d", ErrInvalid, *in.MaxAttendees)
	}
	mode := in.FoodMode
	if mode == "" {
		mode = model.FoodCategories
	}
	if mode != model.FoodCategories && mode != model.FoodSlots {
		return nil, fmt.Errorf("%w: food mode %q", ErrInvalid, mode)
	}
	allowGuests := true
	if in.AllowGuests != nil {
		allowGuests = *in.AllowGuests
	}
	token, err := access.NewShareToken()
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	now := s.timestamp()
	var ev model.Event
	_, err = getOne(ctx, s.db, &ev, `
		INSERT INTO events (id, creator_id, title, description, location, event_date,
			max_attendees, allow_guests, food_mode, status, share_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING *`,
		newID(), in.CreatorID, title, in.Description, in.Location, utcPtr(in.EventDate),
		in.MaxAttendees, allowGuests, mode, model.EventActive, token, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	logger.SVCEvents.LogAttrs(ctx, slog.LevelInfo, "event created",
		slog.String("event", "event.created"),
		logger.EventID(ev.ID),
		slog.Int64("user_id", ev.CreatorID),
	)
	return &ev, nil
}

// GetEventByID returns the event or nil when it does not exist.
func (s *Store) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	found, err := getOne(ctx, s.db, &ev, `SELECT * FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &ev, nil
}

// GetEventByIDAndToken matches id and share token in one query, so a wrong
// token is indistinguishable from a missing event.
func (s *Store) GetEventByIDAndToken(ctx context.Context, id, token string) (*model.Event, error) {
	var ev model.Event
	found, err := getOne(ctx, s.db, &ev, `SELECT * FROM events WHERE id = ? AND share_token = ?`, id, token)
	if err != nil {
		return nil, fmt.Errorf("get event by token: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &ev, nil
}

// GetEventsByCreator lists the creator's active events, newest first.
func (s *Store) GetEventsByCreator(ctx context.Context, creatorID int64) ([]model.Event, error) {
	var out []model.Event
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT * FROM events
		WHERE creator_id = ? AND status = ?
		ORDER BY created_at DESC, id`), creatorID, model.EventActive)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// UpdateEvent applies patch and returns the updated event. An empty string
// clears description or location; a non-positive max attendees removes the
// limit.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if patch.Empty() {
		ev, err := s.GetEventByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, ErrNotFound
		}
		return ev, nil
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		title := *patch.Title
		if title == "" {
			return nil, fmt.Errorf("%w: empty title", ErrInvalid)
		}
		set("title", title)
	}
	if patch.Description != nil {
		set("description", nullIfEmpty(*patch.Description))
	}
	if patch.Location != nil {
		set("location", nullIfEmpty(*patch.Location))
	}
	if patch.EventDate != nil {
		set("event_date", patch.EventDate.UTC())
	}
	if patch.MaxAttendees != nil {
		if *patch.MaxAttendees > 0 {
			set("max_attendees", *patch.MaxAttendees)
		} else {
			set("max_attendees", nil)
		}
	}
	if patch.AllowGuests != nil {
		set("allow_guests", *patch.AllowGuests)
	}
	if patch.FoodMode != nil {
		if m := *patch.FoodMode; m != model.FoodCategories && m != model.FoodSlots {
			return nil, fmt.Errorf("%w: food mode %q", ErrInvalid, m)
		}
		set("food_mode", *patch.FoodMode)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case model.EventActive, model.EventCancelled, model.EventCompleted:
		default:
			return nil, fmt.Errorf("%w: status %q", ErrInvalid, *patch.Status)
		}
		set("status", *patch.Status)
	}
	set("updated_at", s.timestamp())
	args = append(args, id)

	var ev model.Event
	found, err := getOne(ctx, s.db, &ev,
		`UPDATE events SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING *`, args...)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	logger.SVCEvents.LogAttrs(ctx, slog.LevelInfo, "event updated",
		slog.String("event", "event.updated"),
		logger.EventID(ev.ID),
		slog.Int("count", len(sets)-1),
		slog.String("status", string(ev.Status)),
	)
	return &ev, nil
}

// CompletePastEvents marks active events dated before cutoff as completed
// and reports how many changed.
func (s *Store) CompletePastEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE events SET status = ?, updated_at = ?
		WHERE status = ? AND event_date IS NOT NULL AND event_date < ?`),
		model.EventCompleted, s.timestamp(), model.EventActive, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("complete past events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("complete past events: %w", err)
	}
	return n, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
