package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/database"
	"github.com/stemsi/intervue-backend/internal/handler"
	"github.com/stemsi/intervue-backend/internal/logger"
	"github.com/stemsi/intervue-backend/internal/repository"
	"github.com/stemsi/intervue-backend/internal/router"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/validator"
	"github.com/stemsi/intervue-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("recording_dir", cfg.RecordingDir).
		Msg("Starting Intervue Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	if err := os.MkdirAll(cfg.RecordingDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create recording directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	interviewRepo := repository.NewInterviewRepository(pool)
	evaluationRepo := repository.NewEvaluationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	candidateService := service.NewCandidateService(candidateRepo, authService)
	questionService := service.NewQuestionService(questionRepo)
	interviewService := service.NewInterviewService(interviewRepo, questionRepo, rdb, log)
	evaluationService := service.NewEvaluationService(evaluationRepo, interviewService)
	publisher := service.NewEventPublisher(rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, candidateService),
		Question:   handler.NewQuestionHandler(questionService),
		Interview:  handler.NewInterviewHandler(interviewService),
		Evaluation: handler.NewEvaluationHandler(evaluationService),
		Events:     handler.NewEventsHandler(rdb, interviewService, log),
		WS:         handler.NewWSHandler(cfg, interviewService, publisher, log),
		Health:     handler.NewHealthHandler(pool, rdb, cfg.RecordingDir),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	evaluationWorker := worker.NewEvaluationWorker(pool, rdb, log)
	eventWorker := worker.NewEventWorker(pool, rdb, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		evaluationWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		eventWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Hijacked WebSocket connections are
	// not tracked by Shutdown; their sessions detach when the process exits.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their final flush.
	workerCancel()
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
