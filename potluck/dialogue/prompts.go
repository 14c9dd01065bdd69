package dialogue

import (
	"fmt"
	"strings"

	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/core/telegram/keyboard"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/capacity"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
	"github.com/m3rciful/potluckbot/potluck/render"
)

const (
	msgNoUser      = "Could not identify user."
	msgBadLink     = "Invalid RSVP link."
	msgNotFound    = "Event not found."
	msgClosed      = "This event is no longer accepting RSVPs."
	msgDeclined    = "Got it, maybe next time!"
	msgBadDate     = "Couldn't parse that date, skipping for now."
	msgUnknownAck  = "Unknown option"
	msgAddedAck    = "Added!"
	msgRemovedAck  = "Removed!"
	checkmarkLabel = "✅ "
)

func btn(label string, in intent.Intent) Button {
	return Button{Label: label, Data: in.Data()}
}

func skipRow() []Button {
	return []Button{btn("Skip", intent.Skip())}
}

func (e *Engine) promptFor(st *State) Reply {
	switch st.Step {
	case StepTitle:
		return Reply{Text: format.Escape("Let's create a new event! What's the name of your potluck?")}
	case StepDescription:
		return Reply{Text: format.Escape("Add a description (or send /skip):"), Buttons: [][]Button{skipRow()}}
	case StepLocation:
		return Reply{
			Text:    format.Escape("Where is it? Send an address, share a location, or /skip."),
			Buttons: [][]Button{skipRow()},
		}
	case StepDate:
		return Reply{
			Text:    format.Escape("When is it? For example 2026-12-24 18:30 or 24.12.2026 18:30. Send /skip if undecided."),
			Buttons: [][]Button{skipRow()},
		}
	case StepMaxAttendees:
		return Reply{Text: format.Escape("Max attendees?"), Buttons: [][]Button{
			{btn("10", intent.Max("10")), btn("20", intent.Max("20")), btn("50", intent.Max("50"))},
			{btn("Unlimited", intent.Max(intent.ValueUnlimited))},
		}}
	case StepFoodMode:
		return Reply{Text: format.Escape("How should food be organised?"), Buttons: [][]Button{
			{btn("By category", intent.Food(model.FoodCategories))},
			{btn("Sign-up slots", intent.Food(model.FoodSlots))},
		}}
	case StepStatus:
		return e.statusPrompt(st.RSVP)
	case StepGuests:
		return Reply{Text: format.Escape("Bringing anyone?"), Buttons: [][]Button{
			{btn("Just me", intent.Guests("0")), btn("+1", intent.Guests("1")), btn("+2", intent.Guests("2"))},
			{btn("More...", intent.Guests(intent.ValueMore))},
		}}
	case StepGuestNumber:
		return Reply{Text: format.Escapef("How many guests? Enter a number from 0 to %d.", model.MaxGuests)}
	case StepCategory:
		return categoryPrompt()
	case StepDishDescription:
		return Reply{Text: format.Escapef("What %s dish? (e.g. \"Spicy Wings\", \"Caesar Salad\")",
			strings.ToLower(st.RSVP.Category.Label()))}
	case StepAllergens:
		return allergenPrompt(st.RSVP.Allergens, st.RSVP.Selection)
	}
	return Reply{Text: format.Escape("Please use the buttons above.")}
}

func (e *Engine) statusPrompt(d RSVPDraft) Reply {
	var b strings.Builder
	b.WriteString(format.Bold(d.Event.Title))
	if d.Event.EventDate != nil {
		b.WriteString("\n📅 " + format.Escape(render.When(d.Event.EventDate, e.loc)))
	}
	if d.Event.Location != nil {
		b.WriteString("\n📍 " + format.Escape(*d.Event.Location))
	}
	b.WriteString("\n\n" + format.Escape("Are you coming?"))
	if d.Existing != nil {
		b.WriteString("\n" + format.Italic(fmt.Sprintf("You previously answered %s%s.",
			render.StatusLabel(d.Existing.Status), render.Guests(d.Existing.GuestCount))))
	}
	if d.Event.MaxAttendees != nil && d.Count >= *d.Event.MaxAttendees {
		b.WriteString("\n" + format.Italic("Note: this event is currently full. You can still answer Maybe."))
	}
	return Reply{Text: b.String(), Buttons: [][]Button{
		{btn("Yes, I'm coming!", intent.Status(model.RsvpGoing))},
		{btn("Maybe", intent.Status(model.RsvpMaybe)), btn("Can't make it", intent.Status(model.RsvpDeclined))},
	}}
}

func categoryPrompt() Reply {
	buttons := make([]Button, 0, len(model.DishCategories))
	for _, c := range model.DishCategories {
		buttons = append(buttons, btn(c.Label(), intent.Category(c)))
	}
	rows := keyboard.Chunk(buttons, 3)
	rows = append(rows, []Button{btn("Nothing / Surprise", intent.NoDish())})
	return Reply{Text: format.Escape("What are you bringing?"), Buttons: rows}
}

// allergenPrompt lists dietary preferences first, one per row, then hazards
// two per row.
func allergenPrompt(allergens []model.Allergen, sel *Selection) Reply {
	var rows [][]Button
	hazards := make([]Button, 0, len(allergens))
	for _, a := range allergens {
		label := a.DisplayName
		if sel != nil && sel.Has(a.ID) {
			label = checkmarkLabel + label
		}
		b := btn(label, intent.Allergen(a.ID))
		if a.IsDietaryPreference {
			rows = append(rows, []Button{b})
			continue
		}
		hazards = append(hazards, b)
	}
	rows = append(rows, keyboard.Chunk(hazards, 2)...)
	rows = append(rows, []Button{btn("Done", intent.AllergensDone())})
	return Reply{Text: format.Escape("Any dietary info? Select all that apply, then Done."), Buttons: rows}
}

func (e *Engine) createdSummary(ev *model.Event) Reply {
	var b strings.Builder
	b.WriteString(format.Escape("Event created: ") + format.Bold(ev.Title))
	if ev.Description != nil {
		b.WriteString("\n📝 " + format.Escape(*ev.Description))
	}
	if ev.Location != nil {
		b.WriteString("\n📍 " + format.Escape(*ev.Location))
	}
	if ev.EventDate != nil {
		b.WriteString("\n📅 " + format.Escape(render.When(ev.EventDate, e.loc)))
	}
	if ev.MaxAttendees != nil {
		b.WriteString("\n👥 " + format.Escapef("Up to %s", render.People(*ev.MaxAttendees)))
	} else {
		b.WriteString("\n👥 " + format.Escape("No attendee limit"))
	}
	b.WriteString("\n🍽 " + format.Escapef("Food: %s", ev.FoodMode))
	b.WriteString("\n\n" + format.Escape("Share it with your guests using the button below."))

	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}
	rows := [][]Button{
		{{Label: "📣 Share", SwitchInline: ev.Title}},
		{btn("✏️ Edit", intent.Edit(ev.ID)), btn("👀 Details", intent.Details(ref))},
	}
	return Reply{Text: b.String(), Buttons: rows}
}

func rejectionReply(ev *model.Event, v capacity.Verdict) Reply {
	room := v.Max - (v.Current - v.Credit)
	var text string
	if room <= 0 {
		text = format.Escape("Sorry, ") + format.Bold(ev.Title) + format.Escape(" is full. You can still answer Maybe.")
	} else {
		text = format.Escape("Sorry, ") + format.Bold(ev.Title) +
			format.Escapef(" only has room for you plus %d more. Answer again with fewer guests, or as Maybe.", v.Available)
	}
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}
	return Reply{Text: text, Buttons: [][]Button{{btn("Answer again", intent.RSVP(ref))}}}
}

func confirmationReply(d RSVPDraft, dish *model.DishWithAllergens) Reply {
	var b strings.Builder
	b.WriteString(format.Escape("You're all set for ") + format.Bold(d.Event.Title) + format.Escape("!"))
	b.WriteString("\n\n" + format.Escapef("Status: %s%s", render.StatusLabel(d.Status), render.Guests(d.GuestCount)))
	if dish != nil {
		b.WriteString("\n" + format.Escapef("Bringing: %s (%s)", dish.Description, dish.Category.Label()))
		if tags := render.AllergenTags(dish.Allergens); tags != "" {
			b.WriteString(" " + format.Escape(tags))
		}
	}
	ref := access.EventRef{ID: d.Event.ID, Token: d.Event.ShareToken}
	return Reply{Text: b.String(), Buttons: [][]Button{{btn("👀 View details", intent.Details(ref))}}}
}
