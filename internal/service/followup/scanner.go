package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/internal/service/notification"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/metrics"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

const (
	JobName       = "followup_reminders"
	newcomersLink = "/newcomers"
)

type Result struct {
	Success         bool `json:"success"`
	OverdueNotified int  `json:"overdue_notified"`
	OverdueSkipped  int  `json:"overdue_skipped"`
	RemindersSent   int  `json:"reminders_sent"`
	Failed          int  `json:"failed"`
}

type Config struct {
	OverdueThreshold time.Duration
	Location         *time.Location
	PublicURL        string
}

type Scanner struct {
	followups repository.FollowupRepository
	notes     repository.NotificationRepository
	notifier  notification.Service
	cfg       Config
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewScanner(followups repository.FollowupRepository, notes repository.NotificationRepository, notifier notification.Service, cfg Config, m *metrics.Metrics, log *logger.Logger) *Scanner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.OverdueThreshold <= 0 {
		cfg.OverdueThreshold = 48 * time.Hour
	}
	return &Scanner{
		followups: followups,
		notes:     notes,
		notifier:  notifier,
		cfg:       cfg,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	_, err := s.Scan(ctx)
	return err
}

// Scan notifies assignees about overdue newcomers and delivers the
// follow-up reminders dated today. Both lists are read before anything is
// written, so a failed read leaves no partial run behind.
func (s *Scanner) Scan(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveJob(JobName, time.Since(start).Seconds(), err) }()

	now := s.now()
	overdue, err := s.followups.ListOverdue(ctx, now.Add(-s.cfg.OverdueThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue follow-ups: %w", err)
	}
	due, err := s.followups.ListDueReminders(ctx, recurrence.Today(now, s.cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to load due reminders: %w", err)
	}

	result = &Result{Success: true}
	for _, rec := range overdue {
		s.notifyOverdue(ctx, rec, now, result)
	}
	for _, r := range due {
		s.deliverReminder(ctx, r, now, result)
	}

	s.logger.Info("follow-up scan finished",
		"overdue_notified", result.OverdueNotified,
		"overdue_skipped", result.OverdueSkipped,
		"reminders_sent", result.RemindersSent,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Scanner) notifyOverdue(ctx context.Context, rec *model.FollowupRecord, now time.Time, result *Result) {
	if rec.AssignedTo == nil {
		return
	}
	name := rec.FullName()

	exists, err := s.notes.ExistsUnread(ctx, *rec.AssignedTo, model.NotificationDutyReminder, name)
	if err != nil {
		s.fail(result, err, "failed to check existing follow-up notification", "newcomer_id", rec.ID.String())
		return
	}
	if exists {
		result.OverdueSkipped++
		s.metrics.CountItem(JobName, "skipped")
		return
	}

	days := DaysOverdue(rec.Origin(), now)
	n := &model.Notification{
		UserID:  *rec.AssignedTo,
		Type:    model.NotificationDutyReminder,
		Title:   "Follow-up overdue",
		Message: fmt.Sprintf("Your follow-up with %s is %d days overdue.", name, days),
		Link:    newcomersLink,
	}

	var msg *email.Message
	if rec.AssigneeEmail != nil && *rec.AssigneeEmail != "" {
		m, err := email.FollowupOverdue(*rec.AssigneeEmail, email.FollowupOverdueData{
			NewcomerName: name,
			DaysOverdue:  days,
			Link:         s.link(),
		})
		if err != nil {
			s.logger.Error(err, "failed to render follow-up email", "newcomer_id", rec.ID.String())
		} else {
			msg = &m
		}
	}

	if err := s.notifier.Send(ctx, n, msg); err != nil {
		s.fail(result, err, "failed to send overdue notification", "newcomer_id", rec.ID.String())
		return
	}
	result.OverdueNotified++
	s.metrics.CountItem(JobName, "overdue_notified")
}

// deliverReminder marks r sent only once its notification is stored. A
// failed mark means the reminder is delivered again on the next run.
func (s *Scanner) deliverReminder(ctx context.Context, r *model.FollowupReminder, now time.Time, result *Result) {
	message := fmt.Sprintf("Reminder to follow up with %s today.", r.NewcomerName)
	note := ""
	if r.Note != nil {
		note = strings.TrimSpace(*r.Note)
	}
	if note != "" {
		message += " Note: " + note
	}

	n := &model.Notification{
		UserID:  r.AssignedTo,
		Type:    model.NotificationFollowupReminder,
		Title:   "Follow-up reminder",
		Message: message,
		Link:    newcomersLink,
	}

	var msg *email.Message
	if r.AssigneeEmail != nil && *r.AssigneeEmail != "" {
		m, err := email.FollowupReminder(*r.AssigneeEmail, email.FollowupReminderData{
			NewcomerName: r.NewcomerName,
			Note:         note,
			Link:         s.link(),
		})
		if err != nil {
			s.logger.Error(err, "failed to render follow-up reminder email", "reminder_id", r.ID.String())
		} else {
			msg = &m
		}
	}

	if err := s.notifier.Send(ctx, n, msg); err != nil {
		s.fail(result, err, "failed to send follow-up reminder", "reminder_id", r.ID.String())
		return
	}
	if err := s.followups.MarkReminderSent(ctx, r.ID, now); err != nil {
		s.fail(result, err, "failed to mark reminder sent", "reminder_id", r.ID.String())
		return
	}
	result.RemindersSent++
	s.metrics.CountItem(JobName, "reminder_sent")
}

func (s *Scanner) fail(result *Result, err error, msg string, fields ...interface{}) {
	result.Failed++
	s.metrics.CountItem(JobName, "failed")
	s.logger.Error(err, msg, fields...)
}

func (s *Scanner) link() string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + newcomersLink
}

// DaysOverdue is the number of whole days between origin and now.
func DaysOverdue(origin, now time.Time) int {
	if !now.After(origin) {
		return 0
	}
	return int(now.Sub(origin).Hours() / 24)
}
