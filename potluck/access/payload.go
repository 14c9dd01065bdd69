package access

import (
	"strings"

	"github.com/m3rciful/potluckbot/core/telegram/callbacks"
)

// Link prefixes understood by deep links and callback buttons.
const (
	PrefixRSVP     = "rsvp"
	PrefixDetails  = "details"
	PrefixCalendar = "ics"
)

// EventRef identifies an event together with the capability token that
// grants access to it.
type EventRef struct {
	ID    string
	Token string
}

// Payload renders the ref as "<prefix>_<id>_<token>".
func (r EventRef) Payload(prefix string) string {
	return prefix + "_" + r.ID + "_" + r.Token
}

// ParsePayload splits "<prefix>_<eventId>_<token>". The token is taken
// after the last underscore so ids may contain underscores themselves.
func ParsePayload(prefix, payload string) (EventRef, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(payload), prefix+"_")
	if !ok {
		return EventRef{}, ErrInvalidLink
	}
	id, token, ok := callbacks.SplitLast(rest, "_")
	if !ok {
		return EventRef{}, ErrInvalidLink
	}
	return EventRef{ID: id, Token: token}, nil
}
