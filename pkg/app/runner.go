package app

import (
	"context"
	"fmt"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/discord/commands"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/apply"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/poll"
	"github.com/small-frappuccino/guildkit/pkg/discord/commands/role"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/discord/session"
	"github.com/small-frappuccino/guildkit/pkg/logging"
	"github.com/small-frappuccino/guildkit/pkg/storage"
	"github.com/small-frappuccino/guildkit/pkg/task"
	"github.com/small-frappuccino/guildkit/pkg/theme"
	"github.com/small-frappuccino/guildkit/pkg/util"
)

// Run bootstraps the bot and blocks until an interrupt signal arrives.
// appName affects the data, cache and log paths.
//
// Environment: GUILDKIT_TOKEN is read from the process environment first,
// then from ./.env and $HOME/.local/bin/.env.
func Run(appName string) error {
	started := time.Now()

	// App name first (affects paths)
	util.SetAppName(appName)

	cfg, cfgErr := LoadConfig()

	// Logger next so subsequent steps can log meaningfully
	logOpts := logging.Options{Disabled: cfg.LogDisabled}
	if cfg.LogToFile {
		logOpts.FilePath = util.GetLogFilePath()
	}
	if err := logging.SetupLoggerWithOptions(logOpts); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer func() { _ = logging.CloseGlobalLogger() }()

	if cfgErr != nil {
		return fmt.Errorf("load configuration: %w", cfgErr)
	}

	if err := theme.SetCurrent(cfg.Theme); err != nil {
		logging.Warnf("Failed to set theme from %s: %v", EnvTheme, err)
	}

	logging.Info(formatStartupMessage(util.EffectiveAppName(), AppVersion()))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.WithError(err).Warn("Failed to close store")
		}
	}()

	// Discord session
	logging.Info("🔑 Attempting to authenticate with Discord API...")
	discordSession, err := session.NewDiscordSession(cfg.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	defer func() { _ = discordSession.Close() }()
	if discordSession.State == nil || discordSession.State.User == nil {
		return fmt.Errorf("discord session state not properly initialized")
	}
	logging.Infof("✅ Authenticated as %s", discordSession.State.User.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBot(ctx, discordSession, store, cfg)
	defer b.Close()

	if err := b.handler.SetupCommands(discordSession.State.User.ID, cfg.DevGuild); err != nil {
		return fmt.Errorf("configure slash commands: %w", err)
	}
	detach := b.handler.Attach(discordSession)
	defer detach()

	if err := b.Start(ctx); err != nil {
		logging.WithError(err).Warn("Initial poll sweep was not queued")
	}

	logging.Infof("🎯 %s initialized successfully in %s", util.EffectiveAppName(), time.Since(started).Round(time.Millisecond))
	logging.Infof("🤖 %s running. Press Ctrl+C to stop...", util.EffectiveAppName())

	sig := util.WaitForInterrupt(ctx)
	logging.WithField("signal", sig).Infof("🛑 Stopping %s...", util.EffectiveAppName())

	// Cancel handler contexts before the deferred store and session closes run.
	cancel()
	b.Close()
	return nil
}

// openStore opens the configured backend behind the record cache.
func openStore(cfg Config) (*storage.Store, error) {
	if cfg.StoreKind != storage.KindMemory {
		if err := util.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	backend, err := storage.OpenBackend(cfg.StoreKind, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreKind, err)
	}
	store, err := storage.NewStore(backend, storage.WithCache(cfg.CacheSize))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	logging.WithFields(map[string]any{
		"kind":  cfg.StoreKind,
		"dir":   cfg.DataDir,
		"cache": cfg.CacheSize,
	}).Info("Store opened")
	return store, nil
}

// bot wires the feature services, the command handler and the background
// poll sweep over one client and store.
type bot struct {
	handler  *commands.CommandHandler
	tasks    *task.TaskRouter
	adapters *task.PollAdapters
	interval time.Duration

	stopSweep func()
}

func newBot(ctx context.Context, client platform.Client, store *storage.Store, cfg Config) *bot {
	pollSvc := poll.NewService(client, store)
	services := commands.Services{
		Apply: apply.NewService(client, store),
		Poll:  pollSvc,
		Role:  role.NewService(client, store),
	}
	handler := commands.NewCommandHandler(client, store, services, cfg.DevGuild, core.WithBaseContext(ctx))

	tasks := task.NewRouter(task.Defaults())
	return &bot{
		handler:  handler,
		tasks:    tasks,
		adapters: task.NewPollAdapters(tasks, poll.NewSweeper(pollSvc)),
		interval: cfg.SweepInterval,
	}
}

// Start schedules the periodic sweep and queues one immediately so polls
// that came due while the bot was offline close right away.
func (b *bot) Start(ctx context.Context) error {
	b.stopSweep = b.adapters.ScheduleSweep(b.interval)
	return b.adapters.EnqueueSweep(ctx)
}

// Close stops the sweep schedule and the task router. It is idempotent.
func (b *bot) Close() {
	if b.stopSweep != nil {
		b.stopSweep()
		b.stopSweep = nil
	}
	if b.tasks != nil {
		b.tasks.Close()
		b.tasks = nil
	}
}
