package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/internal/service/notification"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/metrics"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

const (
	JobName  = "duty_reminders"
	dutyLink = "/my-duties"
)

// Window is the outcome for one reminder offset.
type Window struct {
	OffsetDays int    `json:"offset_days"`
	Date       string `json:"date"`
	Services   int    `json:"services"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

type Result struct {
	Success   bool      `json:"success"`
	TotalSent int       `json:"total_sent"`
	Failed    int       `json:"failed"`
	Windows   []*Window `json:"windows"`
}

type Config struct {
	OffsetsDays []int
	Location    *time.Location
	PublicURL   string
}

// Scanner reminds members of confirmed duties on services exactly
// OffsetsDays days away. Each assignment falls on a given offset only once
// as the calendar advances, so no dedup is kept.
type Scanner struct {
	services    repository.ServiceRepository
	assignments repository.AssignmentRepository
	notifier    notification.Service
	cfg         Config
	metrics     *metrics.Metrics
	logger      *logger.Logger
	now         func() time.Time
}

func NewScanner(services repository.ServiceRepository, assignments repository.AssignmentRepository, notifier notification.Service, cfg Config, m *metrics.Metrics, log *logger.Logger) *Scanner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scanner{
		services:    services,
		assignments: assignments,
		notifier:    notifier,
		cfg:         cfg,
		metrics:     m,
		logger:      log,
		now:         time.Now,
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	_, err := s.Scan(ctx)
	return err
}

// Scan sends the reminders due today. Reading services or assignments
// aborts the run; a failed notification is counted and skipped.
func (s *Scanner) Scan(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveJob(JobName, time.Since(start).Seconds(), err) }()

	today := recurrence.Today(s.now(), s.cfg.Location)

	windows := make([]*Window, 0, len(s.cfg.OffsetsDays))
	byDate := make(map[string]*Window)
	dates := make([]time.Time, 0, len(s.cfg.OffsetsDays))
	for _, offset := range offsets(s.cfg.OffsetsDays) {
		date := today.AddDate(0, 0, offset)
		w := &Window{OffsetDays: offset, Date: model.FormatDate(date)}
		windows = append(windows, w)
		byDate[w.Date] = w
		dates = append(dates, date)
	}

	services, err := s.services.ListByDates(ctx, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}

	byService := make(map[uuid.UUID]*Window, len(services))
	ids := make([]uuid.UUID, 0, len(services))
	for _, svc := range services {
		w, ok := byDate[model.FormatDate(svc.Date)]
		if !ok {
			continue
		}
		w.Services++
		byService[svc.ID] = w
		ids = append(ids, svc.ID)
	}

	assignments, err := s.assignments.ListConfirmedForServices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	result = &Result{Success: true, Windows: windows}
	for _, a := range assignments {
		w, ok := byService[a.ServiceID]
		if !ok {
			continue
		}
		if err := s.remind(ctx, a, w.OffsetDays); err != nil {
			w.Failed++
			result.Failed++
			s.metrics.CountItem(JobName, "failed")
			s.logger.Error(err, "failed to send duty reminder",
				"assignment_id", a.ID.String(), "member_id", a.MemberID.String())
			continue
		}
		w.Sent++
		result.TotalSent++
		s.metrics.CountItem(JobName, "sent")
	}

	s.logger.Info("duty reminders finished", "sent", result.TotalSent, "failed", result.Failed)
	return result, nil
}

func (s *Scanner) remind(ctx context.Context, a *model.AssignmentReminder, offset int) error {
	date := model.FormatDate(a.ServiceDate)
	n := &model.Notification{
		UserID: a.MemberID,
		Type:   model.NotificationDutyReminder,
		Title:  fmt.Sprintf("Duty reminder (%d-day)", offset),
		Message: fmt.Sprintf("You are serving as %s at %s on %s at %s.",
			a.DutyTypeName, a.ServiceName, date, a.ServiceTime),
		Link: dutyLink,
	}

	var msg *email.Message
	if a.MemberEmail != nil && *a.MemberEmail != "" {
		m, err := email.DutyReminder(*a.MemberEmail, email.DutyReminderData{
			MemberName:  a.MemberName,
			ServiceName: a.ServiceName,
			DutyName:    a.DutyTypeName,
			Date:        date,
			Time:        a.ServiceTime,
			DaysUntil:   offset,
			Link:        strings.TrimRight(s.cfg.PublicURL, "/") + dutyLink,
		})
		if err != nil {
			s.logger.Error(err, "failed to render duty reminder email", "assignment_id", a.ID.String())
		} else {
			msg = &m
		}
	}

	return s.notifier.Send(ctx, n, msg)
}

// offsets returns the distinct offsets, largest first.
func offsets(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
