package middleware

import (
	"log/slog"

	"github.com/m3rciful/potluckbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream
// handlers. With no admin configured every caller is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if opts.AdminID == 0 || sender == nil || sender.ID != opts.AdminID {
				var userID int64
				if sender != nil {
					userID = sender.ID
				}
				logger.TG.Warn("admin command rejected",
					slog.String("event", "tg.admin_reject"),
					slog.Int64("user_id", userID),
					slog.Bool("admin_configured", opts.AdminID != 0),
				)
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
