package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/church-api/internal/app"
	"github.com/jwalitptl/church-api/internal/config"
	"github.com/jwalitptl/church-api/internal/service/followup"
	"github.com/jwalitptl/church-api/internal/service/reminder"
	"github.com/jwalitptl/church-api/internal/service/schedule"
	"github.com/jwalitptl/church-api/internal/worker"
	"github.com/jwalitptl/church-api/pkg/logger"
)

func setupHealthCheck(a *app.App, port int, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", a.Metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := app.NewLogger(cfg)
	log.Logger = logger.ZL

	a, err := app.New(cfg, logger, "church_worker")
	if err != nil {
		logger.ZL.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	scheduler := worker.NewScheduler(a.Location, cfg.Cron.RunTimeout, logger)
	jobs := []worker.Job{
		{Name: schedule.JobName, Spec: cfg.Cron.GenerateSpec, Run: a.Services.Generator.Run},
		{Name: reminder.JobName, Spec: cfg.Cron.ReminderSpec, Run: a.Services.Reminders.Run},
		{Name: followup.JobName, Spec: cfg.Cron.FollowupSpec, Run: a.Services.Followups.Run},
	}
	for _, job := range jobs {
		if err := scheduler.Add(job); err != nil {
			logger.ZL.Fatal().Err(err).Msg("Failed to schedule job")
		}
	}

	health := setupHealthCheck(a, cfg.Cron.HealthCheckPort, logger)

	scheduler.Start()
	logger.ZL.Info().Str("timezone", a.Location.String()).Msg("Worker started")

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.ZL.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(ctx); err != nil {
		logger.ZL.Error().Err(err).Msg("Jobs did not finish before shutdown")
	}
	if err := health.Shutdown(ctx); err != nil {
		logger.ZL.Error().Err(err).Msg("Health check server shutdown failed")
	}
}
