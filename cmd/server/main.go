package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/database"
	"github.com/grahaedukasi/graha-cbt/internal/handler"
	"github.com/grahaedukasi/graha-cbt/internal/logger"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/router"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
	"github.com/grahaedukasi/graha-cbt/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Graha CBT")

	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Storage ──────────────────────────────────────────────────
	store, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	if cfg.SeedOnStart {
		n, err := repository.SeedIfEmpty(ctx, store)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed sample questions")
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("Seeded sample questions")
		}
	}

	clk := clock.New()

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, store, clk, log)
	studentService := service.NewStudentService(store, log)
	questionService := service.NewQuestionService(store, log)
	settingService := service.NewSettingService(store, clk, log)
	subjectService := service.NewSubjectService(store, log)
	reportService := service.NewReportService(store, studentService, log)
	mediaService := service.NewMediaService()
	sessionService := service.NewExamSessionService(cfg, store, clk, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	scheduleWorker := worker.NewScheduleWorker(settingService, clk, cfg.SchedulePoll, log)
	go scheduleWorker.Start(workerCtx)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute)
	go loginLimiter.Cleanup(workerCtx.Done())

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, log),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, studentService, log),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, reportService, sessionService, log),
		Question:      handler.NewQuestionHandler(questionService, log),
		Media:         handler.NewMediaHandler(mediaService, log),
		WS:            handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Setting:       handler.NewSettingHandler(settingService, log),
		Subject:       handler.NewSubjectHandler(subjectService, log),
		System:        handler.NewSystemHandler(sessionService, scheduleWorker, cfg.StorageDriver, log),
		Dashboard:     handler.NewDashboardHandler(service.NewDashboardService(store, sessionService, settingService), log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, studentService, loginLimiter, handlers, cfg)

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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop exam runners. Saved answers stay; students resume on restart.
	sessionService.Shutdown()

	// 3. Stop background workers.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
