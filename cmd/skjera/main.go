package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scienta/skjera/internal/assistant"
	"github.com/scienta/skjera/internal/birthday"
	"github.com/scienta/skjera/internal/config"
	"github.com/scienta/skjera/internal/directory"
	"github.com/scienta/skjera/internal/interaction"
	"github.com/scienta/skjera/internal/server"
	"github.com/scienta/skjera/internal/slack"
	"github.com/scienta/skjera/internal/telemetry"
)

const shutdownGrace = 15 * time.Second

func main() {
	// Best effort: local development keeps secrets in .env.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("SKJERA_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	shutdownTracer, err := telemetry.InitTracer("skjera", logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, err := directory.Open(directory.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	gateway := slack.NewClient(cfg.Slack.BotToken, logger)

	assistantOpts := []assistant.ClientOption{assistant.WithModel(cfg.Assistant.Model)}
	if cfg.Assistant.BaseURL != "" {
		assistantOpts = append(assistantOpts, assistant.WithBaseURL(cfg.Assistant.BaseURL))
	}
	assist := assistant.NewClient(cfg.Assistant.APIKey, logger, assistantOpts...)

	registry := interaction.NewRegistry(logger)

	timeout, err := cfg.Conversation.TimeoutDuration()
	if err != nil {
		return err
	}
	service := birthday.NewService(birthday.Config{
		Timeout:         timeout,
		NetworkInstance: cfg.Slack.TeamID,
	}, store, assist, gateway, registry, logger)

	webhooks := slack.NewWebhookHandler(cfg.Slack.SigningSecret, service, registry, logger)

	srv := server.New(cfg.Server.Port, logger)
	srv.MountAPI(store)
	srv.Router.Post("/slack/events", webhooks.HandleEvents)
	srv.Router.Post("/slack/interactions", webhooks.HandleInteractions)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errs:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// Stop accepting webhooks first, then finalize live conversations so
	// their channel messages are left in a terminal form.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown failed", slog.String("error", err.Error()))
	}
	if err := service.Shutdown(ctx); err != nil {
		logger.Warn("conversation shutdown failed", slog.String("error", err.Error()))
	}

	return nil
}
