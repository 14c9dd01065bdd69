package dialogue

import (
	"time"

	"github.com/m3rciful/potluckbot/potluck/model"
)

// Kind names the dialogue a session runs.
type Kind string

const (
	KindCreateEvent Kind = "create_event"
	KindRSVP        Kind = "rsvp"
)

// Step is the point at which a dialogue waits for input.
type Step string

const (
	StepTitle        Step = "title"
	StepDescription  Step = "description"
	StepLocation     Step = "location"
	StepDate         Step = "date"
	StepMaxAttendees Step = "max_attendees"
	StepFoodMode     Step = "food_mode"

	StepStatus          Step = "status"
	StepGuests          Step = "guests"
	StepGuestNumber     Step = "guest_number"
	StepCategory        Step = "category"
	StepDishDescription Step = "dish_description"
	StepAllergens       Step = "allergens"
)

// State is one in-flight dialogue. It lives only in memory.
type State struct {
	Kind Kind
	Step Step
	User Identity

	Draft EventDraft
	RSVP  RSVPDraft
}

// EventDraft collects the answers of the creation dialogue.
type EventDraft struct {
	Title        string
	Description  *string
	Location     *string
	EventDate    *time.Time
	MaxAttendees *int
}

// RSVPDraft collects the answers of the RSVP dialogue.
type RSVPDraft struct {
	Event      *model.Event
	Existing   *model.Rsvp
	Count      int
	Status     model.RsvpStatus
	GuestCount int
	Saved      *model.Rsvp

	Category        model.DishCategory
	DishDescription string
	Allergens       []model.Allergen
	Selection       *Selection
}
