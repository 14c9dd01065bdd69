package access

import "errors"

var (
	// ErrInvalidLink is returned for payloads that do not have the
	// "<prefix>_<eventId>_<token>" shape.
	ErrInvalidLink = errors.New("access: invalid link")
	// ErrNotFound is returned when the id/token pair matches nothing. A wrong
	// token and a missing event are indistinguishable.
	ErrNotFound = errors.New("access: event not found")
	// ErrEventClosed is returned for events that no longer accept RSVPs.
	ErrEventClosed = errors.New("access: event closed")
)
