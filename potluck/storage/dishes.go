package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// AddDish records a dish for the RSVP and tags it with allergenIDs.
func (s *Store) AddDish(ctx context.Context, rsvpID string, category model.DishCategory, description string, allergenIDs []int) (*model.DishWithAllergens, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: dish category %q", ErrInvalid, category)
	}
	if description == "" {
		return nil, fmt.Errorf("%w: empty dish description", ErrInvalid)
	}
	ids := uniqueInts(allergenIDs)

	var out model.DishWithAllergens
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		found, err := getOne(ctx, tx, &out.UserID, `SELECT user_id FROM rsvps WHERE id = ?`, rsvpID)
		if err != nil {
			return fmt.Errorf("lookup rsvp: %w", err)
		}
		if !found {
			return ErrNotFound
		}
		if _, err := getOne(ctx, tx, &out.Dish, `
			INSERT INTO dishes (id, rsvp_id, category, description, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING *`,
			newID(), rsvpID, category, description, s.timestamp(),
		); err != nil {
			return fmt.Errorf("insert dish: %w", err)
		}
		link := tx.Rebind(`INSERT INTO dish_allergens (dish_id, allergen_id) VALUES (?, ?)`)
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, link, out.ID, id); err != nil {
				return fmt.Errorf("tag dish with allergen %d: %w", id, err)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		query, args, err := sqlx.In(`SELECT * FROM allergens WHERE id IN (?) ORDER BY sort_order, id`, ids)
		if err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &out.Allergens, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("load allergens: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add dish: %w", err)
	}
	logger.SVCRsvps.LogAttrs(ctx, slog.LevelInfo, "dish added",
		slog.String("event", "dish.added"),
		logger.RsvpID(rsvpID),
		slog.String("category", string(category)),
		slog.Int("count", len(ids)),
	)
	return &out, nil
}

type dishAllergenRow struct {
	DishID string `db:"dish_id"`
	model.Allergen
}

// GetDishesForEvent lists every dish brought to the event with its
// allergens and owner.
func (s *Store) GetDishesForEvent(ctx context.Context, eventID string) ([]model.DishWithAllergens, error) {
	var dishes []model.DishWithAllergens
	err := s.db.SelectContext(ctx, &dishes, s.db.Rebind(`
		SELECT d.*, r.user_id FROM dishes d
		JOIN rsvps r ON r.id = d.rsvp_id
		WHERE r.event_id = ?
		ORDER BY d.created_at, d.id`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	if len(dishes) == 0 {
		return dishes, nil
	}

	ids := make([]string, len(dishes))
	index := make(map[string]int, len(dishes))
	for i, d := range dishes {
		ids[i] = d.ID
		index[d.ID] = i
	}
	query, args, err := sqlx.In(`
		SELECT da.dish_id, a.* FROM dish_allergens da
		JOIN allergens a ON a.id = da.allergen_id
		WHERE da.dish_id IN (?)
		ORDER BY a.sort_order, a.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list dish allergens: %w", err)
	}
	var rows []dishAllergenRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list dish allergens: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.DishID]; ok {
			dishes[i].Allergens = append(dishes[i].Allergens, row.Allergen)
		}
	}
	return dishes, nil
}

// GetAllAllergens returns the reference list in display order.
func (s *Store) GetAllAllergens(ctx context.Context) ([]model.Allergen, error) {
	var out []model.Allergen
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM allergens ORDER BY sort_order, id`); err != nil {
		return nil, fmt.Errorf("list allergens: %w", err)
	}
	return out, nil
}

func uniqueInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
