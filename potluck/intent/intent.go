// Package intent encodes and decodes the callback data carried by potluck
// inline buttons. Every payload stays within Telegram's 64 byte limit.
package intent

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/m3rciful/potluckbot/core/telegram/callbacks"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// ErrMalformed is returned for data that matches no known intent.
var ErrMalformed = errors.New("intent: malformed callback data")

// Kind names a button action.
type Kind int

const (
	KindUnknown Kind = iota
	KindRSVP
	KindDetails
	KindCalendar
	KindStatus
	KindMax
	KindFood
	KindGuests
	KindCategory
	KindAllergen
	KindSkip
	KindEdit
	KindGuestsOn
	KindGuestsOff
	KindCancelEvent
)

var kindPrefixes = map[Kind]string{
	KindRSVP:        access.PrefixRSVP,
	KindDetails:     access.PrefixDetails,
	KindCalendar:    access.PrefixCalendar,
	KindStatus:      "status",
	KindMax:         "max",
	KindFood:        "food",
	KindGuests:      "guests",
	KindCategory:    "cat",
	KindAllergen:    "allerg",
	KindSkip:        "skip",
	KindEdit:        "edit",
	KindGuestsOn:    "guestson",
	KindGuestsOff:   "guestsoff",
	KindCancelEvent: "cancelev",
}

var prefixKinds = func() map[string]Kind {
	out := make(map[string]Kind, len(kindPrefixes))
	for k, p := range kindPrefixes {
		out[p] = k
	}
	return out
}()

// Prefix is the callback key for the kind.
func (k Kind) Prefix() string { return kindPrefixes[k] }

// Dialogue reports whether the kind answers a dialogue prompt rather than
// opening a flow of its own.
func (k Kind) Dialogue() bool {
	switch k {
	case KindStatus, KindMax, KindFood, KindGuests, KindCategory, KindAllergen, KindSkip:
		return true
	}
	return false
}

// Values used by dialogue intents.
const (
	ValueUnlimited = "none"
	ValueMore      = "more"
	ValueDone      = "done"
	ValueSkip      = "skip"
)

// Intent is a decoded button press.
type Intent struct {
	Kind    Kind
	Ref     access.EventRef
	EventID string
	Value   string
}

// Data renders the intent back to callback data.
func (i Intent) Data() string {
	prefix := i.Kind.Prefix()
	switch i.Kind {
	case KindRSVP, KindDetails, KindCalendar:
		return i.Ref.Payload(prefix)
	case KindEdit, KindGuestsOn, KindGuestsOff, KindCancelEvent:
		return prefix + "_" + i.EventID
	case KindSkip:
		return prefix
	}
	return prefix + "_" + i.Value
}

// Parse decodes callback data.
func Parse(data string) (Intent, error) {
	key, rest := callbacks.SplitKey(data)
	kind, ok := prefixKinds[key]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	in := Intent{Kind: kind}
	switch kind {
	case KindRSVP, KindDetails, KindCalendar:
		ref, err := access.ParsePayload(key, data)
		if err != nil {
			return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		in.Ref = ref
		return in, nil
	case KindEdit, KindGuestsOn, KindGuestsOff, KindCancelEvent:
		if rest == "" {
			return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		in.EventID = rest
		return in, nil
	case KindSkip:
		if rest != "" {
			return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return in, nil
	}
	if !validValue(kind, rest) {
		return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	in.Value = rest
	return in, nil
}

func validValue(kind Kind, v string) bool {
	switch kind {
	case KindStatus:
		return model.RsvpStatus(v).Valid()
	case KindMax:
		return v == ValueUnlimited || v == "10" || v == "20" || v == "50"
	case KindFood:
		return v == string(model.FoodCategories) || v == string(model.FoodSlots)
	case KindGuests:
		return v == ValueMore || v == "0" || v == "1" || v == "2"
	case KindCategory:
		return v == ValueSkip || model.DishCategory(v).Valid()
	case KindAllergen:
		if v == ValueDone {
			return true
		}
		n, err := strconv.Atoi(v)
		return err == nil && n > 0
	}
	return false
}

// RSVP opens the RSVP dialogue for ref.
func RSVP(ref access.EventRef) Intent {
	return Intent{Kind: KindRSVP, Ref: ref}
}

// Details shows the details view for ref.
func Details(ref access.EventRef) Intent {
	return Intent{Kind: KindDetails, Ref: ref}
}

// Calendar requests the .ics export for ref.
func Calendar(ref access.EventRef) Intent {
	return Intent{Kind: KindCalendar, Ref: ref}
}

// Status answers the attendance question.
func Status(s model.RsvpStatus) Intent {
	return Intent{Kind: KindStatus, Value: string(s)}
}

// Max picks an attendee cap preset.
func Max(v string) Intent {
	return Intent{Kind: KindMax, Value: v}
}

// Food picks how dishes are organised.
func Food(m model.FoodMode) Intent {
	return Intent{Kind: KindFood, Value: string(m)}
}

// Guests picks a guest count, or ValueMore to type one.
func Guests(v string) Intent {
	return Intent{Kind: KindGuests, Value: v}
}

// Skip leaves an optional step empty.
func Skip() Intent {
	return Intent{Kind: KindSkip}
}

// Category picks the dish category.
func Category(c model.DishCategory) Intent {
	return Intent{Kind: KindCategory, Value: string(c)}
}

// NoDish finishes the RSVP without a dish.
func NoDish() Intent {
	return Intent{Kind: KindCategory, Value: ValueSkip}
}

// Allergen toggles one allergen in the selection.
func Allergen(id int) Intent {
	return Intent{Kind: KindAllergen, Value: strconv.Itoa(id)}
}

// AllergensDone closes the allergen selection.
func AllergensDone() Intent {
	return Intent{Kind: KindAllergen, Value: ValueDone}
}

// Edit opens the creator's management menu.
func Edit(eventID string) Intent {
	return Intent{Kind: KindEdit, EventID: eventID}
}

// GuestsOn lets invitees bring guests.
func GuestsOn(eventID string) Intent {
	return Intent{Kind: KindGuestsOn, EventID: eventID}
}

// GuestsOff stops invitees from bringing guests.
func GuestsOff(eventID string) Intent {
	return Intent{Kind: KindGuestsOff, EventID: eventID}
}

// CancelEvent cancels the event.
func CancelEvent(eventID string) Intent {
	return Intent{Kind: KindCancelEvent, EventID: eventID}
}

// AllergenID returns the numeric allergen id of a KindAllergen intent.
func (i Intent) AllergenID() (int, bool) {
	if i.Kind != KindAllergen || i.Value == ValueDone {
		return 0, false
	}
	n, err := strconv.Atoi(i.Value)
	return n, err == nil
}
