package model

import "time"

// RsvpStatus is a user's answer to an invitation.
type RsvpStatus string

const (
	RsvpGoing    RsvpStatus = "going"
	RsvpMaybe    RsvpStatus = "maybe"
	RsvpDeclined RsvpStatus = "declined"
)

// Valid reports whether s is one of the known statuses.
func (s RsvpStatus) Valid() bool {
	switch s {
	case RsvpGoing, RsvpMaybe, RsvpDeclined:
		return true
	}
	return false
}

// MaxGuests is the upper bound on additional guests per RSVP.
const MaxGuests = 20

// Rsvp is one user's answer for one event. (EventID, UserID) is unique.
type Rsvp struct {
	ID         string     `db:"id"`
	EventID    string     `db:"event_id"`
	UserID     int64      `db:"user_id"`
	Status     RsvpStatus `db:"status"`
	GuestCount int        `db:"guest_count"`
	GuestNames *string    `db:"guest_names"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Headcount is the number of people this RSVP contributes when going.
func (r *Rsvp) Headcount() int {
	if r == nil || r.Status != RsvpGoing {
		return 0
	}
	return 1 + r.GuestCount
}
