package helpers

import tele "gopkg.in/telebot.v4"

const respondedKey = "cb_responded"

// Respond answers the current callback query once. Later calls, including
// the router's fallback answer, become no-ops.
func Respond(c tele.Context, resp ...*tele.CallbackResponse) error {
	if c.Callback() == nil || Responded(c) {
		return nil
	}
	c.Set(respondedKey, true)
	return c.Respond(resp...)
}

// Responded reports whether the callback was already answered via Respond.
func Responded(c tele.Context) bool {
	v, _ := c.Get(respondedKey).(bool)
	return v
}
