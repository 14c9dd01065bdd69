package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data returns the raw callback data with Telebot's \f<unique>| envelope
// folded into the plain "<unique>_<payload>" form used by potluck buttons.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	if unique, payload, ok := strings.Cut(raw, "|"); ok {
		if payload == "" {
			return unique
		}
		return unique + "_" + payload
	}
	return strings.TrimSpace(raw)
}

// CallbackKey returns cb.Unique if present; otherwise the prefix of Data
// before the first underscore.
func CallbackKey(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	key, _ := SplitKey(Data(cb))
	return key
}
