package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediaforge/internal/archive"
	"mediaforge/internal/credit"
	"mediaforge/internal/engine"
	"mediaforge/internal/http/handlers"
	"mediaforge/internal/http/httpapi"
	"mediaforge/internal/infra"
	"mediaforge/internal/orchestrator"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	client, err := engine.NewClient(engine.Options{
		BaseURL:    cfg.EngineBaseURL,
		APIKey:     cfg.EngineAPIKey,
		HTTPClient: &http.Client{Timeout: cfg.HTTPWriteTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure engine client")
	}

	// The task archive is optional; without a database everything stays in
	// memory.
	var taskArchive *archive.Archive
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		taskArchive = archive.New(pool)
		if err := taskArchive.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare archive schema")
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set, task archive disabled")
	}

	ledger := credit.NewLedger(cfg.StartingCredits)
	store := orchestrator.NewStore()

	orchOpts := orchestrator.Options{
		Backend:           client,
		Ledger:            ledger,
		Store:             store,
		Logger:            logger,
		ProjectID:         cfg.ProjectID,
		PollInterval:      cfg.PollInterval,
		PollErrorInterval: cfg.PollErrorInterval,
	}
	if taskArchive != nil {
		orchOpts.Archive = taskArchive
	}
	orch := orchestrator.New(orchOpts)
	defer orch.Shutdown()

	app := handlers.NewApp(orch, ledger, taskArchive, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
