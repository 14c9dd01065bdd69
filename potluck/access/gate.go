// Package access implements capability links: share tokens, payload parsing
// and the gate that resolves a link to an event.
package access

import (
	"context"
	"fmt"

	"github.com/m3rciful/potluckbot/potluck/model"
)

// EventLookup finds an event by id and token in a single query. It returns
// nil, nil when nothing matches.
type EventLookup interface {
	GetEventByIDAndToken(ctx context.Context, id, token string) (*model.Event, error)
}

// Gate resolves capability links to events.
type Gate struct {
	events EventLookup
}

// NewGate returns a gate backed by events.
func NewGate(events EventLookup) *Gate {
	return &Gate{events: events}
}

// Resolve returns the event the ref points at regardless of its status.
func (g *Gate) Resolve(ctx context.Context, ref EventRef) (*model.Event, error) {
	if ref.ID == "" || ref.Token == "" {
		return nil, ErrInvalidLink
	}
	ev, err := g.events.GetEventByIDAndToken(ctx, ref.ID, ref.Token)
	if err != nil {
		return nil, fmt.Errorf("access: lookup event: %w", err)
	}
	if ev == nil {
		return nil, ErrNotFound
	}
	return ev, nil
}

// Authorize is Resolve plus the requirement that the event is active.
func (g *Gate) Authorize(ctx context.Context, ref EventRef) (*model.Event, error) {
	ev, err := g.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !ev.IsActive() {
		return nil, ErrEventClosed
	}
	return ev, nil
}

// AuthorizePayload parses a link payload and authorizes it.
func (g *Gate) AuthorizePayload(ctx context.Context, prefix, payload string) (*model.Event, EventRef, error) {
	ref, err := ParsePayload(prefix, payload)
	if err != nil {
		return nil, EventRef{}, err
	}
	ev, err := g.Authorize(ctx, ref)
	return ev, ref, err
}
