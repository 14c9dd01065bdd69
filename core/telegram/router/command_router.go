package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/potluckbot/core/logger"
	tg "github.com/m3rciful/potluckbot/core/telegram"
	"github.com/m3rciful/potluckbot/core/telegram/commands"
	"github.com/m3rciful/potluckbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, reg.Len())
	reg.Each(func(cmd string, def commands.Command) {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), "", "", func() error {
				return inner(c)
			})
		}
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		h = middleware.LoggerMiddleware(h)
		h = middleware.RecoverMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	})

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", reg.Len()),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
