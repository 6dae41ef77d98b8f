// Package app builds the dependency graph shared by the api and worker binaries.
package app

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/church-api/internal/config"
	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/internal/repository/postgres"
	"github.com/jwalitptl/church-api/internal/service/followup"
	"github.com/jwalitptl/church-api/internal/service/notification"
	"github.com/jwalitptl/church-api/internal/service/pattern"
	"github.com/jwalitptl/church-api/internal/service/reminder"
	"github.com/jwalitptl/church-api/internal/service/schedule"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/messaging"
	"github.com/jwalitptl/church-api/pkg/messaging/redis"
	"github.com/jwalitptl/church-api/pkg/metrics"
)

type Repositories struct {
	Patterns      repository.RecurrencePatternRepository
	Templates     repository.ServiceTemplateRepository
	Services      repository.ServiceRepository
	Assignments   repository.AssignmentRepository
	Followups     repository.FollowupRepository
	Notifications repository.NotificationRepository
	Profiles      repository.ProfileRepository
}

type Services struct {
	Notifications notification.Service
	Generator     *schedule.Generator
	Reminders     *reminder.Scanner
	Followups     *followup.Scanner
	Patterns      *pattern.Service
}

// App holds everything both binaries need. Close releases the database
// and broker connections.
type App struct {
	Config   *config.Config
	Location *time.Location
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	DB       *sqlx.DB
	Broker   messaging.Broker
	Repos    Repositories
	Services Services
}

func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		TimeFormat: time.RFC3339,
	})
}

// New connects to Postgres and, when configured, Redis, then wires the
// repositories and services. namespace prefixes every metric.
func New(cfg *config.Config, log *logger.Logger, namespace string) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	broker := messaging.NewNopBroker()
	if cfg.Redis.URL != "" {
		broker, err = redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
		}, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	} else {
		log.Warn("Redis not configured, notifications will not be published")
	}

	a := &App{
		Config:   cfg,
		Location: loc,
		Logger:   log,
		Metrics:  metrics.New(namespace),
		DB:       db,
		Broker:   broker,
		Repos:    newRepositories(db),
	}
	a.Services = a.newServices(email.NewSMTPService(cfg.Email, log))
	return a, nil
}

func newRepositories(db *sqlx.DB) Repositories {
	base := postgres.NewBaseRepository(db)
	return Repositories{
		Patterns:      postgres.NewRecurrencePatternRepository(base),
		Templates:     postgres.NewServiceTemplateRepository(base),
		Services:      postgres.NewServiceRepository(base),
		Assignments:   postgres.NewAssignmentRepository(base),
		Followups:     postgres.NewFollowupRepository(base),
		Notifications: postgres.NewNotificationRepository(base),
		Profiles:      postgres.NewProfileRepository(base),
	}
}

func (a *App) newServices(emailSvc email.Service) Services {
	cfg := a.Config
	notifier := notification.NewService(a.Repos.Notifications, emailSvc, a.Broker, a.Metrics, a.Logger)
	materializer := schedule.NewMaterializer(a.Repos.Templates, a.Repos.Services, a.Logger)

	return Services{
		Notifications: notifier,
		Generator: schedule.NewGenerator(a.Repos.Patterns, materializer, schedule.Config{
			LookaheadDays: cfg.Generation.LookaheadDays,
			Location:      a.Location,
		}, a.Metrics, a.Logger),
		Reminders: reminder.NewScanner(a.Repos.Services, a.Repos.Assignments, notifier, reminder.Config{
			OffsetsDays: cfg.Reminders.OffsetsDays,
			Location:    a.Location,
			PublicURL:   cfg.App.PublicURL,
		}, a.Metrics, a.Logger),
		Followups: followup.NewScanner(a.Repos.Followups, a.Repos.Notifications, notifier, followup.Config{
			OverdueThreshold: cfg.Reminders.OverdueThreshold,
			Location:         a.Location,
			PublicURL:        cfg.App.PublicURL,
		}, a.Metrics, a.Logger),
		Patterns: pattern.NewService(a.Repos.Patterns, a.Repos.Templates),
	}
}

func (a *App) Close() {
	if err := a.Broker.Close(); err != nil {
		a.Logger.Error(err, "Failed to close broker")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error(err, "Failed to close database")
	}
}
