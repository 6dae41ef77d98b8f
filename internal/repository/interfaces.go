package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
)

var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// RecurrencePatternRepository stores recurring service patterns
	RecurrencePatternRepository interface {
		Create(ctx context.Context, pattern *model.RecurrencePattern) error
		Get(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error)
		Update(ctx context.Context, pattern *model.RecurrencePattern) error
		List(ctx context.Context) ([]*model.RecurrencePattern, error)
		ListActive(ctx context.Context) ([]*model.RecurrencePattern, error)
		// AdvanceWatermark sets last_generated_date to date unless the stored
		// value is already on or after it.
		AdvanceWatermark(ctx context.Context, id uuid.UUID, date time.Time) error
	}

	ServiceTemplateRepository interface {
		Create(ctx context.Context, template *model.ServiceTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.ServiceTemplate, error)
		List(ctx context.Context) ([]*model.ServiceTemplate, error)
	}

	ServiceRepository interface {
		// CreateIfAbsent inserts service unless (template_id, date) exists.
		// On conflict service.ID is set to the existing row and created is false.
		CreateIfAbsent(ctx context.Context, service *model.ServiceOccurrence) (created bool, err error)
		ListByDates(ctx context.Context, dates []time.Time) ([]*model.ServiceOccurrence, error)
	}

	AssignmentRepository interface {
		ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID) ([]*model.AssignmentReminder, error)
	}

	FollowupRepository interface {
		ListOverdue(ctx context.Context, cutoff time.Time) ([]*model.FollowupRecord, error)
		ListDueReminders(ctx context.Context, date time.Time) ([]*model.FollowupReminder, error)
		MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		// ExistsUnread reports whether userID has an unread notification of
		// type nt whose message contains text.
		ExistsUnread(ctx context.Context, userID uuid.UUID, nt model.NotificationType, text string) (bool, error)
	}

	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	}
)
