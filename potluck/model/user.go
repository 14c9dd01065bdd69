package model

import "time"

// User is a Telegram account known to the bot.
type User struct {
	ID          int64     `db:"id"`
	Username    *string   `db:"username"`
	DisplayName *string   `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Name picks the most readable identifier available.
func (u *User) Name() string {
	if u == nil {
		return "Someone"
	}
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	return "Someone"
}
