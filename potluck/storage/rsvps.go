package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/database"
	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/capacity"
	"github.com/m3rciful/potluckbot/potluck/model"
)

const attendeeCountQuery = `
	SELECT COALESCE(SUM(1 + guest_count), 0) FROM rsvps
	WHERE event_id = ? AND status = 'going'`

func validateRsvp(status model.RsvpStatus, guests int) error {
	if !status.Valid() {
		return fmt.Errorf("%w: rsvp status %q", ErrInvalid, status)
	}
	if guests < 0 || guests > model.MaxGuests {
		return fmt.Errorf("%w: guest count %d", ErrInvalid, guests)
	}
	return nil
}

// UpsertRsvp creates or overwrites the user's answer for the event.
func (s *Store) UpsertRsvp(ctx context.Context, eventID string, userID int64, status model.RsvpStatus, guests int) (*model.Rsvp, error) {
	if err := validateRsvp(status, guests); err != nil {
		return nil, err
	}
	r, err := s.upsertRsvp(ctx, s.db, eventID, userID, status, guests)
	if err != nil {
		return nil, fmt.Errorf("upsert rsvp: %w", err)
	}
	logRsvp(ctx, r)
	return r, nil
}

func (s *Store) upsertRsvp(ctx context.Context, q sqlx.ExtContext, eventID string, userID int64, status model.RsvpStatus, guests int) (*model.Rsvp, error) {
	now := s.timestamp()
	var r model.Rsvp
	_, err := getOne(ctx, q, &r, `
		INSERT INTO rsvps (id, event_id, user_id, status, guest_count, guest_names, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			status = excluded.status,
			guest_count = excluded.guest_count,
			guest_names = excluded.guest_names,
			updated_at = excluded.updated_at
		RETURNING *`,
		newID(), eventID, userID, status, guests, now, now,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRsvpWithinCapacity writes the answer only if the event is still
// active and, for going answers, the attendee cap still holds. The event row
// is locked for the duration of the check on postgres; sqlite runs with a
// single connection so the transaction is already exclusive.
func (s *Store) UpsertRsvpWithinCapacity(ctx context.Context, eventID string, userID int64, status model.RsvpStatus, guests int) (*model.Rsvp, error) {
	if err := validateRsvp(status, guests); err != nil {
		return nil, err
	}
	lock := ""
	if s.dialect == database.DialectPostgres {
		lock = " FOR UPDATE"
	}

	var saved *model.Rsvp
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var ev model.Event
		found, err := getOne(ctx, tx, &ev, `SELECT * FROM events WHERE id = ?`+lock, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if !found {
			return access.ErrNotFound
		}
		if !ev.IsActive() {
			return access.ErrEventClosed
		}
		if status == model.RsvpGoing && ev.MaxAttendees != nil {
			var current int
			if _, err := getOne(ctx, tx, &current, attendeeCountQuery, eventID); err != nil {
				return fmt.Errorf("attendee count: %w", err)
			}
			var existing model.Rsvp
			found, err := getOne(ctx, tx, &existing, `SELECT * FROM rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID)
			if err != nil {
				return fmt.Errorf("existing rsvp: %w", err)
			}
			var prev *model.Rsvp
			if found {
				prev = &existing
			}
			if v := capacity.Check(ev.MaxAttendees, current, prev, guests); v.Exceeds {
				return &capacity.ExceededError{Verdict: v}
			}
		}
		r, err := s.upsertRsvp(ctx, tx, eventID, userID, status, guests)
		if err != nil {
			return fmt.Errorf("upsert rsvp: %w", err)
		}
		saved = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	logRsvp(ctx, saved)
	return saved, nil
}

// GetRsvp returns the user's answer or nil.
func (s *Store) GetRsvp(ctx context.Context, eventID string, userID int64) (*model.Rsvp, error) {
	var r model.Rsvp
	found, err := getOne(ctx, s.db, &r, `SELECT * FROM rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &r, nil
}

// GetRsvpsForEvent lists every answer for the event in arrival order.
func (s *Store) GetRsvpsForEvent(ctx context.Context, eventID string) ([]model.Rsvp, error) {
	var out []model.Rsvp
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT * FROM rsvps WHERE event_id = ? ORDER BY created_at, id`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	return out, nil
}

// GetAttendeeCount sums 1+guests over going answers.
func (s *Store) GetAttendeeCount(ctx context.Context, eventID string) (int, error) {
	var n int
	if _, err := getOne(ctx, s.db, &n, attendeeCountQuery, eventID); err != nil {
		return 0, fmt.Errorf("attendee count: %w", err)
	}
	return n, nil
}

// DeleteRsvp removes the user's answer together with its dishes.
func (s *Store) DeleteRsvp(ctx context.Context, eventID string, userID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM rsvps WHERE event_id = ? AND user_id = ?`), eventID, userID)
	if err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.SVCRsvps.LogAttrs(ctx, slog.LevelInfo, "rsvp deleted",
		slog.String("event", "rsvp.deleted"),
		logger.EventID(eventID),
		slog.Int64("user_id", userID),
		slog.Int64("affected", n),
	)
	return nil
}

func logRsvp(ctx context.Context, r *model.Rsvp) {
	logger.SVCRsvps.LogAttrs(ctx, slog.LevelInfo, "rsvp saved",
		slog.String("event", "rsvp.saved"),
		logger.EventID(r.EventID),
		logger.RsvpID(r.ID),
		slog.String("status", string(r.Status)),
		slog.Int("guests", r.GuestCount),
	)
}
