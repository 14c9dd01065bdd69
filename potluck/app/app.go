// Package app wires configuration, storage, jobs and the Telegram front end
// into a runnable potluck bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/bootstrap"
	corecmd "github.com/m3rciful/potluckbot/core/cmd"
	"github.com/m3rciful/potluckbot/core/logger"
	tg "github.com/m3rciful/potluckbot/core/telegram"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	tghelpers "github.com/m3rciful/potluckbot/core/telegram/helpers"
	"github.com/m3rciful/potluckbot/core/telegram/router"
	"github.com/m3rciful/potluckbot/core/telegram/ui"
	"github.com/m3rciful/potluckbot/potluck/bot"
	"github.com/m3rciful/potluckbot/potluck/jobs"
	"github.com/m3rciful/potluckbot/potluck/storage"

	tele "gopkg.in/telebot.v4"
)

// App holds the initialised potluck services.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	store   *storage.Store
	sweeper *jobs.Sweeper
	bot     *bot.Bot
}

// Bootstrap initialises logging and the database, then builds the services.
func Bootstrap(ctx context.Context, cfg *Config, opts ...func(*bootstrap.Options)) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	migrations, err := storage.Migrations(cfg.Database.Dialect)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	bopts := bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations,
		Seeders: []bootstrap.Seeder{
			bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
				return storage.New(db, cfg.Database.Dialect).SeedAllergens(ctx, storage.DefaultAllergens)
			}),
		},
	}
	for _, o := range opts {
		o(&bopts)
	}
	res, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *Config, db *sqlx.DB) (*App, error) {
	store := storage.New(db, cfg.Database.Dialect)
	loc := cfg.Potluck.Location()

	// With the schedule off the sweeper is still built for /sweep.
	schedule := ""
	if cfg.Potluck.SweepEnabled() {
		schedule = cfg.Potluck.SweepCron
	}
	sweeper, err := jobs.NewSweeper(store, jobs.SweepOptions{
		Schedule: schedule,
		Grace:    cfg.Potluck.SweepGrace(),
		Location: loc,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	b, err := bot.New(bot.Options{Store: store, Sweeper: sweeper, Location: loc})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return &App{cfg: cfg, db: db, store: store, sweeper: sweeper, bot: b}, nil
}

// Bot returns the Telegram front end.
func (a *App) Bot() *bot.Bot { return a.bot }

// TelegramRunOptions assembles registry, middleware, routes and lifecycle
// hooks for core/telegram.RunTelegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	fb := ui.ResolveFallbacks(a.bot)
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: fb.Text,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: fb.Callback}))
	routes = append(routes, router.TextRoutes(a.bot.ConversationRouter(), reg, router.TextOptions{
		UnknownText:     fb.Text,
		UnknownDocument: fb.Document,
	})...)
	routes = append(routes, router.InlineRoute(a.bot.OnInlineQuery))

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, onLimited),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Respond(c, &tele.CallbackResponse{Text: "Slow down a little"})
	}
	if c.Query() != nil {
		return nil
	}
	return tghelpers.SendMDV2(c, format.Escape("Too many messages. Please wait a moment."))
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if err := a.bot.OnStart(ctx, rt); err != nil {
		return err
	}
	if a.cfg.Potluck.SweepEnabled() {
		a.sweeper.Start(ctx)
	} else {
		logger.Jobs.Info("sweep schedule disabled", slog.String("event", "sweep.disabled"))
	}
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	return errors.Join(a.sweeper.Stop(ctx), a.Close())
}

// Close releases the database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// RunnerOptions plugs the app into core/cmd.Run.
func RunnerOptions() corecmd.Options {
	return corecmd.Options{
		Name:              "potluckbot",
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("app: unexpected config type %T", cfg)
			}
			return Bootstrap(ctx, c)
		},
	}
}
