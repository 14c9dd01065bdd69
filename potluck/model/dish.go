package model

import "time"

// DishCategory is the closed vocabulary of dish kinds.
type DishCategory string

const (
	DishMain    DishCategory = "main"
	DishSide    DishCategory = "side"
	DishDessert DishCategory = "dessert"
	DishDrink   DishCategory = "drink"
	DishOther   DishCategory = "other"
)

// DishCategories lists the categories in the order they are offered.
var DishCategories = []DishCategory{DishMain, DishSide, DishDessert, DishDrink, DishOther}

// Valid reports whether c belongs to the vocabulary.
func (c DishCategory) Valid() bool {
	for _, known := range DishCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Label is the human readable category name.
func (c DishCategory) Label() string {
	switch c {
	case DishMain:
		return "Main"
	case DishSide:
		return "Side"
	case DishDessert:
		return "Dessert"
	case DishDrink:
		return "Drink"
	case DishOther:
		return "Other"
	}
	return string(c)
}

// Dish is a contribution attached to an RSVP.
type Dish struct {
	ID          string       `db:"id"`
	RsvpID      string       `db:"rsvp_id"`
	Category    DishCategory `db:"category"`
	Description string       `db:"description"`
	CreatedAt   time.Time    `db:"created_at"`
}

// DishWithAllergens is a dish with its tags resolved and its owner attached.
type DishWithAllergens struct {
	Dish
	UserID    int64      `db:"user_id"`
	Allergens []Allergen `db:"-"`
}

// Allergen is a dietary tag from the seeded reference list.
type Allergen struct {
	ID                  int    `db:"id"`
	Name                string `db:"name"`
	DisplayName         string `db:"display_name"`
	IsDietaryPreference bool   `db:"is_dietary_preference"`
	SortOrder           int    `db:"sort_order"`
}
