package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/potluckbot/core/logger"
	tghelpers "github.com/m3rciful/potluckbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError is returned by RecoverMiddleware in place of a handler panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code names the error in handler summaries.
func (e *PanicError) Code() string { return "panic" }

// RecoverMiddleware catches panics in handlers and turns them into a
// *PanicError. A pending callback is answered so the client spinner stops.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelError, "panic recovered",
				slog.String("event", "tg.panic"),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			if c.Callback() != nil {
				_ = c.Respond()
			}
			err = &PanicError{Value: r}
		}()
		return next(c)
	}
}
