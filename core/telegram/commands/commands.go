package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Visible reports whether the command belongs in the public command menu.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}

// Normalize turns "create", "/create" and "/create@potluck_bot" into
// "/create". Arguments after the first space are dropped.
func Normalize(text string) string {
	name := strings.TrimSpace(text)
	if i := strings.IndexAny(name, " \n\t"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	if name[0] != '/' {
		name = "/" + name
	}
	return strings.ToLower(name)
}
