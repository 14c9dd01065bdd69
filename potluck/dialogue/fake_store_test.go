package dialogue

import (
	"context"
	"fmt"
	"sync"

	"github.com/m3rciful/potluckbot/potluck/access"
	"github.com/m3rciful/potluckbot/potluck/capacity"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// memStore is an in-memory implementation of the dialogue store interfaces.
type memStore struct {
	mu        sync.Mutex
	seq       int
	events    map[string]*model.Event
	rsvps     map[string]*model.Rsvp
	dishes    []model.DishWithAllergens
	users     map[int64]*model.User
	allergens []model.Allergen

	// raceGuests, when set, is added as someone else's going RSVP right
	// before the next capacity-checked write.
	raceGuests *int
	failCreate error
}

func newMemStore() *memStore {
	return &memStore{
		events: map[string]*model.Event{},
		rsvps:  map[string]*model.Rsvp{},
		users:  map[int64]*model.User{},
		allergens: []model.Allergen{
			{ID: 1, Name: "vegan", DisplayName: "Vegan", IsDietaryPreference: true},
			{ID: 2, Name: "gluten_free", DisplayName: "Gluten-free", IsDietaryPreference: true},
			{ID: 3, Name: "dairy", DisplayName: "Dairy"},
			{ID: 5, Name: "nuts", DisplayName: "Nuts"},
		},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func rsvpKey(eventID string, userID int64) string {
	return fmt.Sprintf("%s/%d", eventID, userID)
}

func (m *memStore) addEvent(ev model.Event) *model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.Status == "" {
		ev.Status = model.EventActive
	}
	m.events[ev.ID] = &ev
	return &ev
}

func (m *memStore) CreateEvent(_ context.Context, in model.NewEvent) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	token, err := access.NewShareToken()
	if err != nil {
		return nil, err
	}
	allow := true
	if in.AllowGuests != nil {
		allow = *in.AllowGuests
	}
	ev := &model.Event{
		ID:           m.nextID("ev"),
		CreatorID:    in.CreatorID,
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		EventDate:    in.EventDate,
		MaxAttendees: in.MaxAttendees,
		AllowGuests:  allow,
		FoodMode:     in.FoodMode,
		Status:       model.EventActive,
		ShareToken:   token,
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memStore) GetEventByIDAndToken(_ context.Context, id, token string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.ShareToken != token {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) GetRsvp(_ context.Context, eventID string, userID int64) (*model.Rsvp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rsvps[rsvpKey(eventID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetAttendeeCount(_ context.Context, eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(eventID), nil
}

func (m *memStore) countLocked(eventID string) int {
	total := 0
	for _, r := range m.rsvps {
		if r.EventID == eventID {
			total += r.Headcount()
		}
	}
	return total
}

func (m *memStore) upsertLocked(eventID string, userID int64, status model.RsvpStatus, guests int) *model.Rsvp {
	key := rsvpKey(eventID, userID)
	r, ok := m.rsvps[key]
	if !ok {
		r = &model.Rsvp{ID: m.nextID("r"), EventID: eventID, UserID: userID}
		m.rsvps[key] = r
	}
	r.Status = status
	r.GuestCount = guests
	cp := *r
	return &cp
}

func (m *memStore) UpsertRsvpWithinCapacity(_ context.Context, eventID string, userID int64, status model.RsvpStatus, guests int) (*model.Rsvp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceGuests != nil {
		m.upsertLocked(eventID, -1, model.RsvpGoing, *m.raceGuests)
		m.raceGuests = nil
	}
	ev, ok := m.events[eventID]
	if !ok {
		return nil, access.ErrNotFound
	}
	if !ev.IsActive() {
		return nil, access.ErrEventClosed
	}
	if status == model.RsvpGoing {
		existing := m.rsvps[rsvpKey(eventID, userID)]
		if v := capacity.Check(ev.MaxAttendees, m.countLocked(eventID), existing, guests); v.Exceeds {
			return nil, &capacity.ExceededError{Verdict: v}
		}
	}
	return m.upsertLocked(eventID, userID, status, guests), nil
}

func (m *memStore) GetAllAllergens(context.Context) ([]model.Allergen, error) {
	return append([]model.Allergen(nil), m.allergens...), nil
}

func (m *memStore) AddDish(_ context.Context, rsvpID string, category model.DishCategory, description string, allergenIDs []int) (*model.DishWithAllergens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dish := model.DishWithAllergens{Dish: model.Dish{ID: m.nextID("d"), RsvpID: rsvpID, Category: category, Description: description}}
	for _, id := range allergenIDs {
		for _, a := range m.allergens {
			if a.ID == id {
				dish.Allergens = append(dish.Allergens, a)
			}
		}
	}
	m.dishes = append(m.dishes, dish)
	return &dish, nil
}

func (m *memStore) UpsertUser(_ context.Context, id int64, username, displayName string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{ID: id}
	if username != "" {
		u.Username = &username
	}
	if displayName != "" {
		u.DisplayName = &displayName
	}
	m.users[id] = u
	return u, nil
}
