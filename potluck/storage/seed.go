package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// DefaultAllergens is the reference list offered in the allergen step.
// Dietary preferences come first.
var DefaultAllergens = []model.Allergen{
	{Name: "vegan", DisplayName: "Vegan", IsDietaryPreference: true, SortOrder: 10},
	{Name: "vegetarian", DisplayName: "Vegetarian", IsDietaryPreference: true, SortOrder: 20},
	{Name: "gluten_free", DisplayName: "Gluten-free", IsDietaryPreference: true, SortOrder: 30},
	{Name: "dairy", DisplayName: "Contains dairy", SortOrder: 40},
	{Name: "nuts", DisplayName: "Contains nuts", SortOrder: 50},
	{Name: "peanuts", DisplayName: "Contains peanuts", SortOrder: 60},
	{Name: "eggs", DisplayName: "Contains eggs", SortOrder: 70},
	{Name: "fish", DisplayName: "Contains fish", SortOrder: 80},
	{Name: "shellfish", DisplayName: "Contains shellfish", SortOrder: 90},
	{Name: "soy", DisplayName: "Contains soy", SortOrder: 100},
	{Name: "sesame", DisplayName: "Contains sesame", SortOrder: 110},
}

// SeedAllergens upserts list by name. Running it again only refreshes
// labels and order; ids stay stable.
func (s *Store) SeedAllergens(ctx context.Context, list []model.Allergen) error {
	query := s.db.Rebind(`
		INSERT INTO allergens (name, display_name, is_dietary_preference, sort_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			display_name = excluded.display_name,
			is_dietary_preference = excluded.is_dietary_preference,
			sort_order = excluded.sort_order`)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range list {
			if a.Name == "" || a.DisplayName == "" {
				return fmt.Errorf("%w: allergen %+v", ErrInvalid, a)
			}
			if _, err := tx.ExecContext(ctx, query, a.Name, a.DisplayName, a.IsDietaryPreference, a.SortOrder); err != nil {
				return fmt.Errorf("seed allergen %q: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.SEED.Error("allergen seed failed",
			slog.String("event", "seed.allergens"),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.SEED.Info("allergens seeded",
		slog.String("event", "seed.allergens"),
		slog.Int("count", len(list)),
	)
	return nil
}
