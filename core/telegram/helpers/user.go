package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// DisplayName joins the first and last name of a Telegram user, falling back
// to the username when both are empty.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}
