package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/potluckbot/core/config"
	"github.com/m3rciful/potluckbot/core/logger"
	tghelpers "github.com/m3rciful/potluckbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/potluckbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 10 * time.Second

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  BuildPoller(cfg),
		Client:  BuildHTTPClient(pollTimeout(cfg)),
		OnError: logBotError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, cfg, bot, time.Since(buildStart))

	if !cfg.Telegram.IsWebhook() && !opts.DisableWebhookCleanup {
		// A webhook left behind by an earlier deployment blocks getUpdates.
		if err := bot.RemoveWebhook(); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("mode", "polling"),
				slog.String("err", err.Error()),
			)
		}
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	useHelperDispatcher := !opts.DisableHelperDispatcher
	if useHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	release := func() {
		dispatcher.Close()
		if useHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	publishCommands(ctx, bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		stopErr = opts.OnStop(stopCtx, rt)
		cancel()
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.IsWebhook() {
		return 0
	}
	return cfg.Telegram.LongPollTimeout()
}

// logMode reports how updates will arrive (INFO aggregates only).
func logMode(ctx context.Context, cfg *coreconfig.Config, bot *tele.Bot, took time.Duration) {
	attrs := []slog.Attr{
		slog.String("event", "mode"),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if len(cfg.Telegram.AllowedUpdates) > 0 {
		attrs = append(attrs, slog.String("allowed_updates", strings.Join(cfg.Telegram.AllowedUpdates, ",")))
	}
	if cfg.Telegram.IsWebhook() {
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", cfg.Webhook.Addr()),
			slog.String("public_url", cfg.Webhook.URL),
			slog.Bool("secret", cfg.Webhook.Secret != ""),
		)
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode", attrs...)
		return
	}
	attrs = append(attrs,
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", int(cfg.Telegram.LongPollTimeout()/time.Second)),
	)
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode", attrs...)
}

// logBotError replaces telebot's default stderr printer.
func logBotError(err error, c tele.Context) {
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "bot.error", logger.Err(err))
}
