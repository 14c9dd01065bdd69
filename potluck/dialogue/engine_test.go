package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
)

var alice = Identity{UserID: 42, ChatID: 42, Username: "alice", DisplayName: "Alice"}

func pick(i intent.Intent) Input { return Input{Selection: &i} }

func text(s string) Input { return Input{Text: s} }

func intPtr(n int) *int { return &n }

func newTestEngine(t *testing.T) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewEngine(store, store, store, Options{}), store
}

func handle(t *testing.T, e *Engine, st *State, in Input) Output {
	t.Helper()
	out, err := e.Handle(context.Background(), st, in)
	require.NoError(t, err)
	return out
}

func lastReply(t *testing.T, out Output) Reply {
	t.Helper()
	require.NotEmpty(t, out.Replies)
	return out.Replies[len(out.Replies)-1]
}

func buttonData(r Reply) []string {
	var out []string
	for _, row := range r.Buttons {
		for _, b := range row {
			if b.Data != "" {
				out = append(out, b.Data)
			}
		}
	}
	return out
}

func seedEvent(store *memStore, limit *int, allowGuests bool) *model.Event {
	return store.addEvent(model.Event{
		ID:           "ev-1",
		CreatorID:    7,
		Title:        "Picnic",
		ShareToken:   "a1b2c3d4e5f6",
		MaxAttendees: limit,
		AllowGuests:  allowGuests,
		FoodMode:     model.FoodCategories,
	})
}

func seedGoing(store *memStore, userID int64, guests int) {
	store.upsertLocked("ev-1", userID, model.RsvpGoing, guests)
}

const rsvpPayload = "rsvp_ev-1_a1b2c3d4e5f6"

func TestCreateEventFlow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	store := newMemStore()
	e := NewEngine(store, store, store, Options{Location: berlin})
	ctx := context.Background()

	st, out, err := e.StartCreate(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.False(t, out.Done)
	assert.Equal(t, StepTitle, st.Step)
	require.Contains(t, store.users, alice.UserID)

	handle(t, e, st, text("Summer BBQ"))
	assert.Equal(t, "Summer BBQ", st.Draft.Title)
	assert.Equal(t, StepDescription, st.Step)

	handle(t, e, st, text("Bring chairs"))
	require.NotNil(t, st.Draft.Description)
	assert.Equal(t, StepLocation, st.Step)

	handle(t, e, st, Input{Location: &GeoPoint{Lat: 52.52, Lon: 13.405}})
	require.NotNil(t, st.Draft.Location)
	assert.Equal(t, "52.52, 13.405", *st.Draft.Location)

	handle(t, e, st, text("2026-07-04 18:00"))
	require.NotNil(t, st.Draft.EventDate)
	assert.Equal(t, time.Date(2026, 7, 4, 16, 0, 0, 0, time.UTC), *st.Draft.EventDate)
	assert.Equal(t, StepMaxAttendees, st.Step)

	handle(t, e, st, pick(intent.Max("20")))
	require.NotNil(t, st.Draft.MaxAttendees)
	assert.Equal(t, 20, *st.Draft.MaxAttendees)

	out = handle(t, e, st, pick(intent.Food(model.FoodSlots)))
	require.True(t, out.Done)
	assert.Equal(t, OutcomeCreated, out.Outcome)
	require.NotNil(t, out.Event)
	assert.Equal(t, model.FoodSlots, out.Event.FoodMode)
	assert.True(t, out.Event.AllowGuests)
	assert.Len(t, out.Event.ShareToken, 12)

	reply := lastReply(t, out)
	assert.Contains(t, reply.Text, "*Summer BBQ*")
	require.NotEmpty(t, reply.Buttons)
	assert.Equal(t, "Summer BBQ", reply.Buttons[0][0].SwitchInline)
	assert.Contains(t, buttonData(reply), "edit_"+out.Event.ID)
}

func TestCreateEventSkipsAndBadDate(t *testing.T) {
	e, _ := newTestEngine(t)
	st, _, err := e.StartCreate(context.Background(), alice)
	require.NoError(t, err)

	handle(t, e, st, text("Potluck"))
	handle(t, e, st, text("/skip"))
	assert.Nil(t, st.Draft.Description)
	handle(t, e, st, pick(intent.Skip()))
	assert.Nil(t, st.Draft.Location)

	out := handle(t, e, st, text("next tuesdayish"))
	assert.Nil(t, st.Draft.EventDate)
	assert.Equal(t, StepMaxAttendees, st.Step)
	require.Len(t, out.Replies, 2)
	assert.Contains(t, out.Replies[0].Text, "Couldn't parse that date")

	handle(t, e, st, pick(intent.Max(intent.ValueUnlimited)))
	assert.Nil(t, st.Draft.MaxAttendees)

	out = handle(t, e, st, text("whatever"))
	require.True(t, out.Done)
	assert.Equal(t, model.FoodCategories, out.Event.FoodMode)
	assert.Nil(t, out.Event.MaxAttendees)
}

func TestCreateEventRepromptsOnWrongInput(t *testing.T) {
	e, _ := newTestEngine(t)
	st, _, err := e.StartCreate(context.Background(), alice)
	require.NoError(t, err)

	out := handle(t, e, st, Input{Location: &GeoPoint{Lat: 1, Lon: 2}})
	assert.Equal(t, StepTitle, st.Step)
	assert.False(t, out.Done)
	require.Len(t, out.Replies, 1)
	assert.Contains(t, out.Replies[0].Text, "name of your potluck")

	// The title is kept exactly as typed.
	handle(t, e, st, text("  Potluck "))
	assert.Equal(t, "  Potluck ", st.Draft.Title)
	handle(t, e, st, text("/skip"))
	handle(t, e, st, text("/skip"))
	handle(t, e, st, text("/skip"))
	require.Equal(t, StepMaxAttendees, st.Step)

	out = handle(t, e, st, pick(intent.Status(model.RsvpGoing)))
	assert.Equal(t, StepMaxAttendees, st.Step)
	assert.Equal(t, "That button belongs to another question.", out.Ack)
	assert.Contains(t, buttonData(lastReply(t, out)), "max_none")

	out = handle(t, e, st, text("12"))
	assert.Equal(t, StepMaxAttendees, st.Step)
	assert.Empty(t, out.Ack)
}

func TestStartWithoutUserAborts(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, true)

	st, out, err := e.StartCreate(context.Background(), Identity{})
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeAborted, out.Outcome)

	st, out, err = e.StartRSVP(context.Background(), Identity{}, rsvpPayload)
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, OutcomeAborted, out.Outcome)
	assert.Contains(t, lastReply(t, out).Text, "Could not identify user")
}

func TestStartRSVPRejectsBadLinks(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, true)
	store.addEvent(model.Event{ID: "ev-old", ShareToken: "ffffffffffff", Title: "Old", Status: model.EventCancelled})

	cases := map[string]string{
		"rsvp_nonsense":            "Invalid RSVP link",
		"rsvp_ev-1_000000000000":   "Event not found",
		"rsvp_ev-2_a1b2c3d4e5f6":   "Event not found",
		"rsvp_ev-old_ffffffffffff": "no longer accepting RSVPs",
	}
	for payload, want := range cases {
		st, out, err := e.StartRSVP(context.Background(), alice, payload)
		require.NoError(t, err, payload)
		assert.Nil(t, st, payload)
		assert.True(t, out.Done, payload)
		assert.Equal(t, OutcomeAborted, out.Outcome, payload)
		assert.Contains(t, lastReply(t, out).Text, want, payload)
	}
	assert.Empty(t, store.rsvps)
}

func TestRSVPDeclined(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, intPtr(10), true)

	st, out, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, StepStatus, st.Step)
	assert.Contains(t, lastReply(t, out).Text, "*Picnic*")

	out = handle(t, e, st, pick(intent.Status(model.RsvpDeclined)))
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeDeclined, out.Outcome)

	saved := store.rsvps[rsvpKey("ev-1", alice.UserID)]
	require.NotNil(t, saved)
	assert.Equal(t, model.RsvpDeclined, saved.Status)
	assert.Zero(t, saved.GuestCount)
}

func TestRSVPCapacityRejected(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, intPtr(10), true)
	seedGoing(store, 100, 3)
	seedGoing(store, 101, 3)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	assert.Equal(t, 8, st.RSVP.Count)

	handle(t, e, st, pick(intent.Status(model.RsvpGoing)))
	require.Equal(t, StepGuests, st.Step)

	out := handle(t, e, st, pick(intent.Guests("2")))
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeCapacityRejected, out.Outcome)
	reply := lastReply(t, out)
	assert.Contains(t, reply.Text, "plus 1 more")
	assert.Equal(t, []string{rsvpPayload}, buttonData(reply))
	assert.NotContains(t, store.rsvps, rsvpKey("ev-1", alice.UserID))
}

func TestRSVPCapacityCreditsExistingAnswer(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, intPtr(10), true)
	seedGoing(store, 100, 6)
	seedGoing(store, alice.UserID, 2)

	st, out, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	assert.Contains(t, lastReply(t, out).Text, "previously answered Yes \\(\\+2 guests\\)")
	assert.Contains(t, lastReply(t, out).Text, "currently full")

	handle(t, e, st, pick(intent.Status(model.RsvpGoing)))
	out = handle(t, e, st, pick(intent.Guests("2")))
	assert.False(t, out.Done)
	assert.Equal(t, StepCategory, st.Step)
	assert.Equal(t, 2, store.rsvps[rsvpKey("ev-1", alice.UserID)].GuestCount)
}

func TestRSVPCapacityRaceRejectedByStore(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, intPtr(10), true)
	seedGoing(store, 100, 7)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	handle(t, e, st, pick(intent.Status(model.RsvpGoing)))

	zero := 0
	store.raceGuests = &zero
	out := handle(t, e, st, pick(intent.Guests("1")))
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeCapacityRejected, out.Outcome)
	assert.NotContains(t, store.rsvps, rsvpKey("ev-1", alice.UserID))
}

func TestRSVPEventClosedMidDialogue(t *testing.T) {
	cases := []struct {
		name   string
		limit  *int
		guests bool
		status model.RsvpStatus
		more   []Input
	}{
		{name: "capped going", limit: intPtr(10), status: model.RsvpGoing},
		{name: "uncapped going", status: model.RsvpGoing},
		{name: "maybe with guests", guests: true, status: model.RsvpMaybe, more: []Input{pick(intent.Guests("0"))}},
		{name: "declined", status: model.RsvpDeclined},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, store := newTestEngine(t)
			ev := seedEvent(store, tc.limit, tc.guests)

			st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
			require.NoError(t, err)

			store.mu.Lock()
			store.events[ev.ID].Status = model.EventCancelled
			store.mu.Unlock()

			out := handle(t, e, st, pick(intent.Status(tc.status)))
			for _, in := range tc.more {
				require.False(t, out.Done)
				out = handle(t, e, st, in)
			}
			assert.True(t, out.Done)
			assert.Equal(t, OutcomeAborted, out.Outcome)
			assert.Contains(t, lastReply(t, out).Text, "no longer accepting")
			assert.NotContains(t, store.rsvps, rsvpKey(ev.ID, alice.UserID))
		})
	}
}

func TestRSVPCompletedWithDish(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, true)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)

	handle(t, e, st, pick(intent.Status(model.RsvpGoing)))
	handle(t, e, st, pick(intent.Guests(intent.ValueMore)))
	require.Equal(t, StepGuestNumber, st.Step)
	handle(t, e, st, text(" 4 "))
	require.Equal(t, StepCategory, st.Step)
	assert.Equal(t, 4, store.rsvps[rsvpKey("ev-1", alice.UserID)].GuestCount)

	handle(t, e, st, pick(intent.Category(model.DishMain)))
	require.Equal(t, StepDishDescription, st.Step)
	out := handle(t, e, st, text("Lasagna "))
	require.Equal(t, StepAllergens, st.Step)
	assert.Equal(t, "Lasagna ", st.RSVP.DishDescription)
	assert.Contains(t, buttonData(lastReply(t, out)), "allerg_done")

	out = handle(t, e, st, pick(intent.Allergen(3)))
	assert.Equal(t, "Added!", out.Ack)
	assert.Empty(t, out.Replies)
	out = handle(t, e, st, pick(intent.Allergen(3)))
	assert.Equal(t, "Removed!", out.Ack)
	out = handle(t, e, st, pick(intent.Allergen(5)))
	assert.Equal(t, "Added!", out.Ack)
	out = handle(t, e, st, pick(intent.Allergen(99)))
	assert.Equal(t, "Unknown option", out.Ack)
	assert.Equal(t, []int{5}, st.RSVP.Selection.IDs())

	out = handle(t, e, st, pick(intent.AllergensDone()))
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeCompleted, out.Outcome)

	require.Len(t, store.dishes, 1)
	dish := store.dishes[0]
	assert.Equal(t, model.DishMain, dish.Category)
	assert.Equal(t, "Lasagna ", dish.Description)
	require.Len(t, dish.Allergens, 1)
	assert.Equal(t, "nuts", dish.Allergens[0].Name)
	assert.Equal(t, store.rsvps[rsvpKey("ev-1", alice.UserID)].ID, dish.RsvpID)

	reply := lastReply(t, out)
	assert.Contains(t, reply.Text, "Lasagna")
	assert.Contains(t, reply.Text, "\\+4 guests")
	assert.Contains(t, buttonData(reply), "details_ev-1_a1b2c3d4e5f6")
}

func TestRSVPGuestNumberOutOfRange(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, true)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	handle(t, e, st, pick(intent.Status(model.RsvpMaybe)))
	handle(t, e, st, pick(intent.Guests(intent.ValueMore)))

	out := handle(t, e, st, text("25"))
	assert.Equal(t, StepCategory, st.Step)
	require.Len(t, out.Replies, 2)
	assert.Contains(t, out.Replies[0].Text, "count just you")
	saved := store.rsvps[rsvpKey("ev-1", alice.UserID)]
	assert.Equal(t, model.RsvpMaybe, saved.Status)
	assert.Zero(t, saved.GuestCount)
}

func TestRSVPWithoutGuestsSkipsGuestQuestion(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, false)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)
	handle(t, e, st, pick(intent.Status(model.RsvpGoing)))
	assert.Equal(t, StepCategory, st.Step)

	out := handle(t, e, st, pick(intent.NoDish()))
	assert.True(t, out.Done)
	assert.Equal(t, OutcomeCompleted, out.Outcome)
	assert.Empty(t, store.dishes)
	assert.NotContains(t, lastReply(t, out).Text, "Bringing:")
}

func TestRSVPStaleButtonReprompts(t *testing.T) {
	e, store := newTestEngine(t)
	seedEvent(store, nil, true)

	st, _, err := e.StartRSVP(context.Background(), alice, rsvpPayload)
	require.NoError(t, err)

	out := handle(t, e, st, pick(intent.Allergen(3)))
	assert.Equal(t, StepStatus, st.Step)
	assert.Equal(t, "That button belongs to another question.", out.Ack)
	assert.Contains(t, buttonData(lastReply(t, out)), "status_going")

	out = handle(t, e, st, text("yes please"))
	assert.Equal(t, StepStatus, st.Step)
	assert.False(t, out.Done)
	assert.Empty(t, store.rsvps)
}

func TestHandleStoreFailure(t *testing.T) {
	e, store := newTestEngine(t)
	st, _, err := e.StartCreate(context.Background(), alice)
	require.NoError(t, err)
	for _, in := range []Input{text("Potluck"), text("/skip"), text("/skip"), text("/skip"), pick(intent.Max("10"))} {
		handle(t, e, st, in)
	}

	boom := errors.New("disk full")
	store.failCreate = boom
	_, err = e.Handle(context.Background(), st, pick(intent.Food(model.FoodCategories)))
	require.ErrorIs(t, err, boom)

	_, err = e.Handle(context.Background(), nil, text("hi"))
	require.Error(t, err)
	_, err = e.Handle(context.Background(), &State{Step: "nowhere"}, text("hi"))
	require.Error(t, err)
}

func TestPromptCoversEveryStep(t *testing.T) {
	e, _ := newTestEngine(t)
	ev := &model.Event{ID: "ev-1", Title: "Picnic", ShareToken: "tok"}
	for step := range steps {
		st := &State{Step: step, RSVP: RSVPDraft{Event: ev, Category: model.DishSide, Selection: NewSelection()}}
		reply := e.Prompt(st)
		assert.NotEmpty(t, reply.Text, step)
		assert.False(t, strings.Contains(reply.Text, "Please use the buttons"), step)
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "capacity_rejected", OutcomeCapacityRejected.String())
	assert.Equal(t, "created", OutcomeCreated.String())
	assert.Equal(t, "none", Outcome(99).String())
}

func TestAllergenPromptPutsDietaryFirst(t *testing.T) {
	allergens := []model.Allergen{
		{ID: 1, DisplayName: "Contains nuts"},
		{ID: 2, DisplayName: "Vegan", IsDietaryPreference: true},
		{ID: 3, DisplayName: "Vegetarian", IsDietaryPreference: true},
		{ID: 4, DisplayName: "Gluten-free", IsDietaryPreference: true},
		{ID: 5, DisplayName: "Contains dairy"},
		{ID: 6, DisplayName: "Contains eggs"},
	}
	sel := NewSelection()
	sel.Toggle(5)

	var labels [][]string
	for _, row := range allergenPrompt(allergens, sel).Buttons {
		var line []string
		for _, b := range row {
			line = append(line, b.Label)
		}
		labels = append(labels, line)
	}
	assert.Equal(t, [][]string{
		{"Vegan"},
		{"Vegetarian"},
		{"Gluten-free"},
		{"Contains nuts", checkmarkLabel + "Contains dairy"},
		{"Contains eggs"},
		{"Done"},
	}, labels)
}
