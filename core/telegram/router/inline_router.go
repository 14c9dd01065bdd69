package router

import (
	"time"

	tg "github.com/m3rciful/potluckbot/core/telegram"
	"github.com/m3rciful/potluckbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// InlineRoute wraps an inline query handler with the shared middleware and
// summary logging.
func InlineRoute(h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if h == nil || c.Query() == nil {
			logHandlerSummary(c, "inline_query", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "inline_query", start, "", "", func() error {
			return h(c)
		})
	}
	return tg.Route{
		Endpoint: tele.OnQuery,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
