// Package cmd turns a config loader and an app constructor into a process
// entry point.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/potluckbot/core/buildinfo"
	coreconfig "github.com/m3rciful/potluckbot/core/config"
	"github.com/m3rciful/potluckbot/core/logger"
	coretelegram "github.com/m3rciful/potluckbot/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	Name              string
	ConfigEnvVar      string
	DefaultConfigPath string

	// Args are the command line arguments without the program name.
	Args   []string
	Output io.Writer

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// errVersionPrinted ends Run early after -version.
var errVersionPrinted = errors.New("version printed")

// configPath resolves the config file from -config, then the environment,
// then the default.
func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	name := o.Name
	if name == "" {
		name = "bot"
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if o.Output != nil {
		fs.SetOutput(o.Output)
	}
	path := fs.String("config", "", "path to the YAML config (overrides $"+env+")")
	version := fs.Bool("version", false, "print the build version and exit")
	if err := fs.Parse(o.Args); err != nil {
		return "", err
	}
	if *version {
		fmt.Fprintf(fs.Output(), "%s %s\n", name, buildinfo.String())
		return "", errVersionPrinted
	}

	switch {
	case *path != "":
		return *path, nil
	case os.Getenv(env) != "":
		return os.Getenv(env), nil
	case o.DefaultConfigPath != "":
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via -config, %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot runtime.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	cfgPath, err := opts.configPath()
	if errors.Is(err, errVersionPrinted) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	// Signals also abort a bootstrap stuck on the database.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return errors.Join(fmt.Errorf("cmd: telegram options build failed: %w", err), application.Close())
	}

	appLog := logger.Component("app")
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog.Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog.Info("shutting down...", slog.String("event", "shutdown"))
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return application.Close()
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}
