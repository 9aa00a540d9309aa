package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/database"
	"github.com/kmhistory/quizhub-backend/internal/handler"
	"github.com/kmhistory/quizhub-backend/internal/logger"
	"github.com/kmhistory/quizhub-backend/internal/repository"
	"github.com/kmhistory/quizhub-backend/internal/router"
	"github.com/kmhistory/quizhub-backend/internal/service"
	"github.com/kmhistory/quizhub-backend/internal/validator"
	"github.com/kmhistory/quizhub-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting QuizHub Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	topicRepo := repository.NewTopicRepository(pool)
	bundleRepo := repository.NewBundleRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)

	// Services.
	authService := service.NewAuthService(cfg, userRepo)
	quizService := service.NewQuizService(questionRepo, historyRepo, rdb)
	topicService := service.NewTopicService(topicRepo)
	bundleService := service.NewBundleService(bundleRepo, questionRepo, progressRepo, historyRepo, rdb)
	questionService := service.NewQuestionService(questionRepo, topicRepo)
	statsService := service.NewStatsService(historyRepo, rdb)

	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, authService),
		Quiz:   handler.NewQuizHandler(quizService, topicService),
		Bundle: handler.NewBundleHandler(bundleService),
		Admin:  handler.NewAdminHandler(questionService, bundleService, topicService, statsService),
	}

	// Background workers.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, _ := errgroup.WithContext(workerCtx)

	statsWorker := worker.NewStatsWorker(rdb, log)
	workers.Go(func() error {
		statsWorker.Start(workerCtx)
		return nil
	})

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// Stop accepting new HTTP requests first, then drain the workers.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}
