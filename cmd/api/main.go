package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pixelstudio/internal/adapter/snapshot"
	"pixelstudio/internal/event"
	"pixelstudio/internal/http/handlers"
	httpapi "pixelstudio/internal/http/httpapi"
	"pixelstudio/internal/infra"
	"pixelstudio/internal/jobs"
	"pixelstudio/internal/providers/status"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository, closeRepo, err := snapshot.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot backend")
	}
	defer closeRepo()

	statusClient, err := status.NewClient(status.Options{
		BaseURL:    cfg.StatusBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.StatusTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure status client")
	}

	bus := event.NewBus(&logger)
	bus.Subscribe(event.EventConnectionChanged, func(_ context.Context, e event.Event) error {
		if payload, ok := e.Payload.(event.ConnectionEvent); ok {
			logger.Info().Str("connection", payload.Status).Msg("status endpoint connection changed")
		}
		return nil
	})

	tracker, err := jobs.NewTracker(jobs.Options{
		Fetcher:        statusClient,
		Repository:     repository,
		Bus:            bus,
		Logger:         &logger,
		PollInterval:   cfg.PollInterval,
		StaleThreshold: cfg.StaleThreshold,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build tracker")
	}
	if _, err := tracker.Rehydrate(ctx); err != nil {
		logger.Error().Err(err).Msg("rehydrate failed, starting with an empty registry")
	}
	go tracker.RunSweeper(ctx, cfg.SweepInterval)

	app := handlers.NewApp(tracker, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		DefaultLocale:   cfg.DefaultLocale,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	logger.Info().Str("status_base_url", cfg.StatusBaseURL).Msg("tracker API starting")
	if err := server.ListenAndRun(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := tracker.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("failed to close tracker")
	}
	logger.Info().Msg("server stopped")
}
