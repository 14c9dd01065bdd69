package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/potluckbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const loggedKey = "update.logged"

// markLogged reports whether the receipt line for c was already written and
// marks it written. Middleware may wrap both the bot and single routes, so
// the same update can pass here twice.
func markLogged(c tele.Context) bool {
	if done, _ := c.Get(loggedKey).(bool); done {
		return true
	}
	c.Set(loggedKey, true)
	return false
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
// Payloads are logged with invite tokens redacted.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()
		c.Set("update_start", time.Now())

		ctx := tghelpers.NewUpdateContext(c)
		rid := tghelpers.RID(c)
		chatID, userID := logger.ChatIDFrom(ctx), logger.UserIDFrom(ctx)

		if !markLogged(c) && logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("rid", rid),
				slog.Int("update_id", upd.ID),
			}
			if chatID != 0 {
				attrs = append(attrs, slog.Int64("chat_id", chatID))
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
				if user != nil && user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user != nil && user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}

			// Enrich by kind
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.SplitKey(callbacks.Redact(callbacks.Data(upd.Callback)))
				if key != "" {
					attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
				}
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
				}
			case upd.Message != nil:
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(callbacks.Redact(t), 256)))
				} else if upd.Message.Location != nil {
					attrs = append(attrs, slog.String("payload", "location"))
				}
			case upd.Query != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Query.Text, 256)))
			}
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}
