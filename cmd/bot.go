package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/formrelay/internal/config"
	"github.com/nextlevelbuilder/formrelay/internal/discord"
	"github.com/nextlevelbuilder/formrelay/internal/store"
	"github.com/nextlevelbuilder/formrelay/internal/store/pg"
	"github.com/nextlevelbuilder/formrelay/internal/store/sqlite"
	"github.com/nextlevelbuilder/formrelay/internal/telemetry"
)

func runBot() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)

	if cfg.Discord.Token == "" {
		slog.Error("no bot token configured, set FORMRELAY_BOT_TOKEN")
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	bot, err := discord.New(cfg.Discord, stores)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if err := bot.Start(context.Background()); err != nil {
		slog.Error("failed to start bot", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bot.Stop(shutdownCtx); err != nil {
		slog.Warn("bot stop failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}
}

// openStores selects the backend: Postgres when a DSN is configured,
// local sqlite otherwise.
func openStores(cfg *config.Config) (*store.Stores, error) {
	storeCfg := store.StoreConfig{
		PostgresDSN: cfg.Database.PostgresDSN,
		SQLitePath:  config.ExpandHome(cfg.Database.SQLitePath),
	}
	if cfg.IsManagedMode() {
		slog.Info("storage backend: postgres")
		return pg.NewPGStores(storeCfg)
	}
	slog.Info("storage backend: sqlite", "path", storeCfg.SQLitePath)
	return sqlite.NewSQLiteStores(storeCfg)
}

func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
