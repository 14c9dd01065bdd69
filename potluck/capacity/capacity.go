// Package capacity decides whether an RSVP fits under an event's attendee cap.
package capacity

import (
	"errors"
	"fmt"

	"github.com/m3rciful/potluckbot/potluck/model"
)

// ErrExceeded reports that accepting an RSVP would overflow the event.
var ErrExceeded = errors.New("capacity: exceeded")

// Verdict is the outcome of a capacity check.
type Verdict struct {
	Unlimited bool
	Max       int
	Current   int
	// Credit is the headcount of the user's existing going RSVP, released
	// before the candidate is counted.
	Credit    int
	Projected int
	// Available is how many guests the user could still bring on top of
	// themselves. Never negative.
	Available int
	Exceeds   bool
}

// Count sums 1+guests over going RSVPs.
func Count(rsvps []model.Rsvp) int {
	total := 0
	for i := range rsvps {
		total += rsvps[i].Headcount()
	}
	return total
}

// Check evaluates a going RSVP with candidateGuests guests against limit.
// current is the event's present attendee count and existing is the user's
// previous RSVP, if any.
func Check(limit *int, current int, existing *model.Rsvp, candidateGuests int) Verdict {
	if limit == nil {
		return Verdict{Unlimited: true, Current: current}
	}
	v := Verdict{Max: *limit, Current: current, Credit: existing.Headcount()}
	base := current - v.Credit
	v.Projected = base + 1 + candidateGuests
	v.Exceeds = v.Projected > v.Max
	v.Available = v.Max - base - 1
	if v.Available < 0 {
		v.Available = 0
	}
	return v
}

// ExceededError carries the verdict behind a rejection. It matches
// ErrExceeded with errors.Is.
type ExceededError struct {
	Verdict Verdict
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("capacity: exceeded (projected %d of %d)", e.Verdict.Projected, e.Verdict.Max)
}

// Is makes errors.Is(err, ErrExceeded) hold.
func (e *ExceededError) Is(target error) bool {
	return target == ErrExceeded
}
