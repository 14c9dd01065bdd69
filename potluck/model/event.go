// Package model holds the potluck domain records shared by storage, the
// dialogue engine and the Telegram adapter.
package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// FoodMode controls how dish contributions are organised.
type FoodMode string

const (
	FoodCategories FoodMode = "categories"
	FoodSlots      FoodMode = "slots"
)

// Event is a potluck gathering. ShareToken never changes after creation.
type Event struct {
	ID           string      `db:"id"`
	CreatorID    int64       `db:"creator_id"`
	Title        string      `db:"title"`
	Description  *string     `db:"description"`
	Location     *string     `db:"location"`
	EventDate    *time.Time  `db:"event_date"`
	MaxAttendees *int        `db:"max_attendees"`
	AllowGuests  bool        `db:"allow_guests"`
	FoodMode     FoodMode    `db:"food_mode"`
	Status       EventStatus `db:"status"`
	ShareToken   string      `db:"share_token"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// IsActive reports whether the event still accepts RSVPs.
func (e *Event) IsActive() bool {
	return e != nil && e.Status == EventActive
}

// NewEvent carries the creator-supplied fields of a new event. A nil
// AllowGuests defaults to true and an empty FoodMode to categories.
type NewEvent struct {
	CreatorID    int64
	Title        string
	Description  *string
	Location     *string
	EventDate    *time.Time
	MaxAttendees *int
	AllowGuests  *bool
	FoodMode     FoodMode
}

// EventPatch lists the event fields that may be updated after creation.
// Nil fields are left untouched. Identity, creator, token and timestamps are
// not patchable.
type EventPatch struct {
	Title        *string
	Description  *string
	Location     *string
	EventDate    *time.Time
	MaxAttendees *int
	AllowGuests  *bool
	FoodMode     *FoodMode
	Status       *EventStatus
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.EventDate == nil &&
		p.MaxAttendees == nil && p.AllowGuests == nil && p.FoodMode == nil && p.Status == nil
}
