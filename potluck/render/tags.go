package render

import (
	"strings"

	"github.com/m3rciful/potluckbot/potluck/model"
)

var shortTags = map[string]string{
	"vegan":       "V",
	"vegetarian":  "VG",
	"gluten_free": "GF",
	"dairy":       "DAIRY",
	"nuts":        "NUTS",
	"peanuts":     "PEANUTS",
	"eggs":        "EGGS",
	"shellfish":   "SHELLFISH",
	"fish":        "FISH",
	"wheat":       "WHEAT",
	"soy":         "SOY",
	"sesame":      "SESAME",
}

// ShortTag is the compact label for an allergen name.
func ShortTag(name string) string {
	if tag, ok := shortTags[name]; ok {
		return tag
	}
	return strings.ToUpper(name)
}

// AllergenTags renders "[GF, V]" or "" for no allergens.
func AllergenTags(allergens []model.Allergen) string {
	if len(allergens) == 0 {
		return ""
	}
	tags := make([]string, len(allergens))
	for i, a := range allergens {
		tags[i] = ShortTag(a.Name)
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
