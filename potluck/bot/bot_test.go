package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/potluckbot/core/database"
	"github.com/m3rciful/potluckbot/core/telegram/state"
	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/dialogue"
	"github.com/m3rciful/potluckbot/potluck/intent"
	"github.com/m3rciful/potluckbot/potluck/model"
	"github.com/m3rciful/potluckbot/potluck/storage"
)

var (
	testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	organiser = dialogue.Identity{UserID: 100, ChatID: 100, Username: "olga", DisplayName: "Olga"}
	guest     = dialogue.Identity{UserID: 200, ChatID: 200, Username: "gus", DisplayName: "Gus"}
)

func keyFor(who dialogue.Identity) state.Key {
	return state.Key{ChatID: who.ChatID, UserID: who.UserID}
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	cfg := database.Config{Dialect: database.DialectSQLite, Path: filepath.Join(t.TempDir(), "bot.db")}
	require.NoError(t, cfg.Normalize())
	migrations, err := storage.Migrations(cfg.Dialect)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(cfg, migrations))
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.New(db, cfg.Dialect, storage.WithClock(func() time.Time { return testNow }))
	require.NoError(t, store.SeedAllergens(context.Background(), storage.DefaultAllergens))
	return store
}

func newTestBot(t *testing.T, store Store) *Bot {
	t.Helper()
	b, err := New(Options{Store: store, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	return b
}

func createEvent(t *testing.T, s *storage.Store, in model.NewEvent) *model.Event {
	t.Helper()
	if in.CreatorID == 0 {
		in.CreatorID = organiser.UserID
	}
	if in.Title == "" {
		in.Title = "Garden Potluck"
	}
	ev, err := s.CreateEvent(context.Background(), in)
	require.NoError(t, err)
	return ev
}

func choose(i intent.Intent) string { return i.Data() }

func texts(resp Response) string {
	parts := make([]string, 0, len(resp.Replies))
	for _, r := range resp.Replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

func allData(rows [][]dialogue.Button) []string {
	var out []string
	for _, row := range rows {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func callback(t *testing.T, b *Bot, who dialogue.Identity, data string) Response {
	t.Helper()
	resp, err := b.Callback(context.Background(), keyFor(who), who, data)
	require.NoError(t, err)
	return resp
}

func input(t *testing.T, b *Bot, who dialogue.Identity, text string) Response {
	t.Helper()
	resp, handled, err := b.Input(context.Background(), keyFor(who), dialogue.Input{Text: text})
	require.NoError(t, err)
	require.True(t, handled, "no dialogue waiting for %q", text)
	return resp
}

func TestStartWithoutPayloadWelcomes(t *testing.T) {
	b := newTestBot(t, newTestStore(t))
	resp, err := b.Start(context.Background(), keyFor(guest), guest, "")
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "Welcome to Potluck Bot")
	assert.False(t, b.Active(keyFor(guest)))

	resp, err = b.Start(context.Background(), keyFor(guest), guest, "party_time")
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "Invalid link")
}

func TestCreateThenRSVPEndToEnd(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ctx := context.Background()

	resp, err := b.Start(ctx, keyFor(organiser), organiser, "create")
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "name of your potluck")
	require.True(t, b.Active(keyFor(organiser)))

	input(t, b, organiser, "Garden Potluck")
	callback(t, b, organiser, choose(intent.Skip()))
	input(t, b, organiser, "/skip")
	input(t, b, organiser, "2026-06-20 18:00")
	callback(t, b, organiser, choose(intent.Max("10")))
	resp = callback(t, b, organiser, choose(intent.Food(model.FoodCategories)))
	assert.Contains(t, texts(resp), "Event created")
	assert.False(t, b.Active(keyFor(organiser)), "creation should end the session")

	events, err := store.GetEventsByCreator(ctx, organiser.UserID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	require.NotNil(t, ev.EventDate)
	require.NotNil(t, ev.MaxAttendees)
	assert.Equal(t, 10, *ev.MaxAttendees)
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}

	resp, err = b.Start(ctx, keyFor(guest), guest, ref.Payload(access.PrefixRSVP))
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "Are you coming?")

	callback(t, b, guest, choose(intent.Status(model.RsvpGoing)))
	callback(t, b, guest, choose(intent.Guests("1")))
	callback(t, b, guest, choose(intent.Category(model.DishMain)))
	resp = input(t, b, guest, "Lasagne")
	require.NotEmpty(t, resp.Replies)
	assert.Contains(t, allData(resp.Replies[0].Buttons), choose(intent.AllergensDone()))

	// dairy is the fourth seeded allergen
	resp = callback(t, b, guest, choose(intent.Allergen(4)))
	assert.Equal(t, "Added!", resp.Ack)
	require.NotNil(t, resp.Edit, "toggle should refresh the keyboard")
	assert.Contains(t, resp.Edit.Text, "dietary info")
	assert.Empty(t, resp.Replies)

	resp = callback(t, b, guest, choose(intent.AllergensDone()))
	assert.Contains(t, texts(resp), "all set")
	assert.False(t, b.Active(keyFor(guest)))

	count, err := store.GetAttendeeCount(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	resp, err = b.Start(ctx, keyFor(guest), guest, ref.Payload(access.PrefixDetails))
	require.NoError(t, err)
	details := texts(resp)
	assert.Contains(t, details, "Lasagne")
	assert.Contains(t, details, "DAIRY")
	assert.Contains(t, details, "Gus")
	require.Len(t, resp.Replies, 1)
	assert.ElementsMatch(t,
		[]string{choose(intent.RSVP(ref)), choose(intent.Calendar(ref))},
		allData(resp.Replies[0].Buttons))
}

func TestStaleDialogueButton(t *testing.T) {
	b := newTestBot(t, newTestStore(t))
	resp := callback(t, b, guest, choose(intent.Status(model.RsvpGoing)))
	assert.Equal(t, msgExpired, resp.Ack)
	assert.True(t, resp.Alert)

	resp = callback(t, b, guest, "totally_unknown")
	assert.Equal(t, msgUnsupported, resp.Ack)
}

func TestCancelDialogue(t *testing.T) {
	b := newTestBot(t, newTestStore(t))
	ctx := context.Background()

	resp := b.Cancel(ctx, keyFor(organiser))
	assert.Contains(t, texts(resp), "nothing to cancel")

	_, err := b.Create(ctx, keyFor(organiser), organiser)
	require.NoError(t, err)
	resp = b.Cancel(ctx, keyFor(organiser))
	assert.Contains(t, texts(resp), "Cancelled")
	assert.False(t, b.Active(keyFor(organiser)))
}

func TestSessionsAreScopedToChat(t *testing.T) {
	b := newTestBot(t, newTestStore(t))
	ctx := context.Background()
	inGroup := organiser
	inGroup.ChatID = -100500

	_, err := b.Create(ctx, keyFor(organiser), organiser)
	require.NoError(t, err)
	assert.True(t, b.Active(keyFor(organiser)))
	assert.False(t, b.Active(keyFor(inGroup)))

	_, handled, err := b.Input(ctx, keyFor(inGroup), dialogue.Input{Text: "Lunch"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCallbackRedirects(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ev := createEvent(t, store, model.NewEvent{})
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}
	b.SetUsername("@potluck_bot")

	resp := callback(t, b, guest, choose(intent.RSVP(ref)))
	assert.Equal(t, "https://t.me/potluck_bot?start="+ref.Payload(access.PrefixRSVP), resp.URL)

	resp = callback(t, b, guest, choose(intent.Details(ref)))
	assert.Equal(t, "https://t.me/potluck_bot?start="+ref.Payload(access.PrefixDetails), resp.URL)

	forged := access.EventRef{ID: ev.ID, Token: "000000000000"}
	resp = callback(t, b, guest, choose(intent.RSVP(forged)))
	assert.Empty(t, resp.URL)
	assert.Equal(t, msgNotFound, resp.Ack)
	assert.True(t, resp.Alert)

	cancelled := model.EventCancelled
	_, err := store.UpdateEvent(context.Background(), ev.ID, model.EventPatch{Status: &cancelled})
	require.NoError(t, err)
	resp = callback(t, b, guest, choose(intent.RSVP(ref)))
	assert.Equal(t, msgClosed, resp.Ack)

	assert.Empty(t, resp.URL)

	resp = callback(t, b, guest, choose(intent.Details(ref)))
	assert.Empty(t, resp.URL)
	assert.Equal(t, msgClosed, resp.Ack)
	assert.True(t, resp.Alert)

	resp, err = b.Start(context.Background(), keyFor(guest), guest, ref.Payload(access.PrefixDetails))
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "no longer accepting")
	assert.NotContains(t, texts(resp), ev.Title)
}

func TestCallbackWithoutUsernameStartsInPlace(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ev := createEvent(t, store, model.NewEvent{})
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}

	resp := callback(t, b, guest, choose(intent.RSVP(ref)))
	assert.Empty(t, resp.URL)
	assert.Contains(t, texts(resp), "Are you coming?")
	assert.True(t, b.Active(keyFor(guest)))
}

func TestCreatorManagement(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ctx := context.Background()
	ev := createEvent(t, store, model.NewEvent{})

	resp := callback(t, b, guest, choose(intent.Edit(ev.ID)))
	assert.Equal(t, msgNotCreator, resp.Ack)
	assert.Empty(t, resp.Replies)

	resp = callback(t, b, organiser, choose(intent.Edit(ev.ID)))
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, allData(resp.Replies[0].Buttons), choose(intent.GuestsOff(ev.ID)))
	assert.Contains(t, allData(resp.Replies[0].Buttons), choose(intent.CancelEvent(ev.ID)))

	resp = callback(t, b, guest, choose(intent.GuestsOff(ev.ID)))
	assert.Equal(t, msgNotCreator, resp.Ack)

	resp = callback(t, b, organiser, choose(intent.GuestsOff(ev.ID)))
	require.NotNil(t, resp.Edit)
	assert.Contains(t, allData(resp.Edit.Buttons), choose(intent.GuestsOn(ev.ID)))
	got, err := store.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, got.AllowGuests)
	assert.Equal(t, ev.ShareToken, got.ShareToken)

	resp = callback(t, b, organiser, choose(intent.CancelEvent(ev.ID)))
	assert.Equal(t, "Event cancelled", resp.Ack)
	require.NotNil(t, resp.Edit)
	assert.NotContains(t, allData(resp.Edit.Buttons), choose(intent.CancelEvent(ev.ID)))

	resp = callback(t, b, organiser, choose(intent.CancelEvent(ev.ID)))
	assert.Contains(t, resp.Ack, "already cancelled")

	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}
	start, err := b.Start(ctx, keyFor(guest), guest, ref.Payload(access.PrefixRSVP))
	require.NoError(t, err)
	assert.Contains(t, texts(start), "no longer accepting")
	assert.False(t, b.Active(keyFor(guest)))

	resp = callback(t, b, organiser, choose(intent.Edit("missing")))
	assert.Equal(t, msgNotFound, resp.Ack)
}

func TestCalendarExport(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	when := time.Date(2026, 6, 20, 16, 0, 0, 0, time.UTC)
	dated := createEvent(t, store, model.NewEvent{Title: "Summer Grill & Chill!", EventDate: &when})
	undated := createEvent(t, store, model.NewEvent{Title: "Someday"})

	resp := callback(t, b, guest, choose(intent.Calendar(access.EventRef{ID: dated.ID, Token: dated.ShareToken})))
	require.NotNil(t, resp.Document)
	assert.Equal(t, "summer-grill-chill.ics", resp.Document.Name)
	assert.Equal(t, "text/calendar", resp.Document.MIME)
	assert.Contains(t, string(resp.Document.Body), "BEGIN:VCALENDAR")
	assert.Contains(t, string(resp.Document.Body), "Summer Grill")

	resp = callback(t, b, guest, choose(intent.Calendar(access.EventRef{ID: undated.ID, Token: undated.ShareToken})))
	assert.Nil(t, resp.Document)
	assert.Equal(t, msgNoDate, resp.Ack)
}

func TestFileSlug(t *testing.T) {
	cases := map[string]string{
		"Summer Grill & Chill!": "summer-grill-chill",
		"  ":                    "event",
		"Ünïcode Fête 2026":     "ünïcode-fête-2026",
	}
	for in, want := range cases {
		assert.Equal(t, want, fileSlug(in), in)
	}
}

func TestMyEvents(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ctx := context.Background()

	resp, err := b.MyEvents(ctx, organiser)
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "no active events")

	ev := createEvent(t, store, model.NewEvent{Title: "Brunch", MaxAttendees: intPtr(8)})
	_, err = store.UpsertRsvp(ctx, ev.ID, guest.UserID, model.RsvpGoing, 2)
	require.NoError(t, err)

	resp, err = b.MyEvents(ctx, organiser)
	require.NoError(t, err)
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "Brunch")
	assert.Contains(t, resp.Replies[0].Text, "3/8")
	assert.Contains(t, allData(resp.Replies[0].Buttons), choose(intent.Edit(ev.ID)))
	assert.NotContains(t, resp.Replies[0].Text, "t.me")

	b.SetUsername("potluck_bot")
	resp, err = b.MyEvents(ctx, organiser)
	require.NoError(t, err)
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}
	assert.Contains(t, resp.Replies[0].Text, "[invite link](https://t.me/potluck_bot?start="+ref.Payload(access.PrefixRSVP)+")")
}

func intPtr(n int) *int { return &n }

func TestInlineCards(t *testing.T) {
	store := newTestStore(t)
	b := newTestBot(t, store)
	ctx := context.Background()
	b.SetUsername("potluck_bot")

	cards, err := b.InlineCards(ctx, organiser, "")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Create your first event", cards[0].Title)
	require.Len(t, cards[0].Buttons, 1)
	assert.Equal(t, "https://t.me/potluck_bot?start=create", cards[0].Buttons[0][0].URL)

	brunch := createEvent(t, store, model.NewEvent{Title: "Brunch"})
	createEvent(t, store, model.NewEvent{Title: "Board games"})

	cards, err = b.InlineCards(ctx, organiser, "")
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	cards, err = b.InlineCards(ctx, organiser, "brun")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, brunch.ID, cards[0].ID)
	ref := access.EventRef{ID: brunch.ID, Token: brunch.ShareToken}
	assert.Equal(t, []string{choose(intent.RSVP(ref)), choose(intent.Details(ref))}, allData(cards[0].Buttons))
	assert.Contains(t, cards[0].Text, "Brunch")

	cards, err = b.InlineCards(ctx, organiser, "no match at all")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

type sweepFunc func(ctx context.Context) (int64, error)

func (f sweepFunc) RunOnce(ctx context.Context) (int64, error) { return f(ctx) }

func TestSweep(t *testing.T) {
	store := newTestStore(t)
	b, err := New(Options{Store: store, Sweeper: sweepFunc(func(context.Context) (int64, error) { return 3, nil })})
	require.NoError(t, err)

	resp, err := b.Sweep(context.Background())
	require.NoError(t, err)
	assert.Contains(t, texts(resp), "3 event")

	boom := errors.New("db gone")
	b, err = New(Options{Store: store, Sweeper: sweepFunc(func(context.Context) (int64, error) { return 0, boom })})
	require.NoError(t, err)
	_, err = b.Sweep(context.Background())
	assert.ErrorIs(t, err, boom)
}

type failingDishes struct {
	*storage.Store
	err error
}

func (f failingDishes) AddDish(context.Context, string, model.DishCategory, string, []int) (*model.DishWithAllergens, error) {
	return nil, f.err
}

func TestStoreFailureDropsSession(t *testing.T) {
	store := newTestStore(t)
	boom := errors.New("disk full")
	b := newTestBot(t, failingDishes{Store: store, err: boom})
	ev := createEvent(t, store, model.NewEvent{})
	ref := access.EventRef{ID: ev.ID, Token: ev.ShareToken}

	_, err := b.Start(context.Background(), keyFor(guest), guest, ref.Payload(access.PrefixRSVP))
	require.NoError(t, err)
	callback(t, b, guest, choose(intent.Status(model.RsvpMaybe)))
	callback(t, b, guest, choose(intent.Guests("0")))
	callback(t, b, guest, choose(intent.Category(model.DishDessert)))
	input(t, b, guest, "Tiramisu")

	done := intent.AllergensDone()
	_, handled, err := b.Input(context.Background(), keyFor(guest), dialogue.Input{Selection: &done})
	assert.True(t, handled)
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.Active(keyFor(guest)), "a store failure must end the dialogue")
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
