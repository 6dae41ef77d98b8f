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
	"github.com/jwalitptl/church-api/internal/handler"
	cronHandler "github.com/jwalitptl/church-api/internal/handler/cron"
	patternHandler "github.com/jwalitptl/church-api/internal/handler/pattern"
	"github.com/jwalitptl/church-api/internal/middleware"
	"github.com/jwalitptl/church-api/internal/repository/postgres"
	"github.com/jwalitptl/church-api/internal/router"
	"github.com/jwalitptl/church-api/pkg/auth"
	migrations "github.com/jwalitptl/church-api/pkg/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg)
	log.Logger = logger.ZL

	if cfg.Database.Migrate {
		if err := migrations.MigrateUp(postgres.DSN(cfg.Database), cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("migrations applied")
	}

	a, err := app.New(cfg, logger, "church_api")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer a.Close()

	if cfg.Cron.Secret == "" {
		log.Warn().Msg("CRON_SECRET not set, cron endpoints are open outside production")
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(
		auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience),
		a.Repos.Profiles,
		cfg.Auth.RoleCacheTTL,
	)

	// Initialize handlers
	h := handler.NewHandler(a.DB, a.Metrics)
	cronH := cronHandler.NewHandler(a.Services.Generator, a.Services.Reminders, a.Services.Followups, logger)
	patternH := patternHandler.NewHandler(a.Services.Patterns, a.Services.Generator, a.Location)

	// Setup router
	r := router.NewRouter(authMiddleware, h, cronH, patternH, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        cfg.RateLimit.RequestsPerSecond,
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CronSecret:       cfg.Cron.Secret,
		Production:       cfg.IsProduction(),
		Metrics:          a.Metrics,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
