package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cache "github.com/patrickmn/go-cache"

	"server/internal/domain"
	"server/internal/history"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/gemini"
	"server/internal/providers/horde"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// History is optional; without DATABASE_URL the repo is a no-op.
	var repo *history.Repo
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(context.Background(), cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		repo = history.NewRepo(pool)
		logger.Info().Msg("generation history enabled")
	}

	hordeLogger := infra.ComponentLogger(logger, "horde")
	hordeClient, err := horde.NewClient(horde.Options{
		APIKey:      cfg.HordeAPIKey,
		BaseURL:     cfg.HordeBaseURL,
		Model:       cfg.HordeModel,
		ClientAgent: cfg.ClientAgent,
		Logger:      &hordeLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation client")
	}

	classifier, err := gemini.NewClassifier(gemini.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build emotion classifier")
	}

	orchLogger := infra.ComponentLogger(logger, "orchestrator")
	orch := orchestrator.New(orchestrator.Options{
		Provider: hordeClient,
		Policy: orchestrator.Policy{
			PollInitial:      cfg.PollInitial,
			PollMultiplier:   cfg.PollMultiplier,
			PollMax:          cfg.PollMax,
			PollFailureLimit: cfg.PollFailureLimit,
			SubmitRetries:    cfg.SubmitRetries,
			SubmitRetryDelay: cfg.SubmitRetryDelay,
			ModifyBudget:     cfg.ModifyBudget,
			GenerateBudget:   cfg.GenerateBudget,
		},
		Logger:         orchLogger,
		MaxConcurrent:  cfg.MaxConcurrent,
		SubmitInterval: cfg.SubmitInterval,
		OnProgress: func(p domain.Progress) {
			orchLogger.Debug().
				Str("state", string(p.State)).
				Dur("elapsed", p.Elapsed).
				Int("queue_pos", p.QueuePos).
				Msg("generation progress")
		},
	})

	app := &handlers.App{
		Logger:      infra.ComponentLogger(logger, "http"),
		Cfg:         cfg,
		Generator:   orch,
		Classifier:  classifier,
		History:     repo,
		DetectCache: cache.New(cfg.DetectCacheTTL, 2*cfg.DetectCacheTTL),
	}

	router := httpapi.NewRouter(app, cfg.RateLimitPerMin)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
