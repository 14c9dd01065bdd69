package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/telegram/format"
	"github.com/m3rciful/potluckbot/potluck/model"
)

// UpsertUser records the latest username and display name for a Telegram
// user. Empty values are stored as NULL.
func (s *Store) UpsertUser(ctx context.Context, id int64, username, displayName string) (*model.User, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: user id 0", ErrInvalid)
	}
	now := s.timestamp()
	var u model.User
	_, err := getOne(ctx, s.db, &u, `
		INSERT INTO users (id, username, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
		RETURNING *`,
		id, format.StringPtr(username), format.StringPtr(displayName), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// GetUsersByIDs returns the known users among ids keyed by id. Unknown ids
// are absent from the map; an empty input never touches the database.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	out := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}
