package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/messaging"
	"github.com/jwalitptl/church-api/pkg/metrics"
)

const channelNotifications = "notifications"

type Service interface {
	// Send stores n and then fans it out. Only the store can fail the call;
	// broker and email delivery are best effort.
	Send(ctx context.Context, n *model.Notification, msg *email.Message) error
}

type service struct {
	repo     repository.NotificationRepository
	emailSvc email.Service
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo repository.NotificationRepository, emailSvc email.Service, broker messaging.Broker, m *metrics.Metrics, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		emailSvc: emailSvc,
		broker:   broker,
		metrics:  m,
		logger:   log,
		now:      time.Now,
	}
}

func (s *service) Send(ctx context.Context, n *model.Notification, msg *email.Message) error {
	if err := validateNotification(n); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	n.ID = uuid.New()
	n.CreatedAt = s.now()
	n.IsRead = false

	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	s.publish(ctx, n)
	if msg != nil && msg.To != "" {
		s.sendEmail(ctx, n, *msg)
	}
	return nil
}

func (s *service) publish(ctx context.Context, n *model.Notification) {
	err := s.broker.Publish(ctx, channelNotifications, messaging.Message{
		Type:    "notification.created",
		Payload: n,
	})
	if err != nil {
		s.metrics.BrokerPublishes.WithLabelValues("error").Inc()
		s.logger.Warn("failed to publish notification", "notification_id", n.ID.String(), "error", err.Error())
		return
	}
	s.metrics.BrokerPublishes.WithLabelValues("ok").Inc()
}

func (s *service) sendEmail(ctx context.Context, n *model.Notification, msg email.Message) {
	res, err := s.emailSvc.Send(ctx, msg)
	if err != nil {
		s.metrics.EmailsSent.WithLabelValues("error").Inc()
		s.logger.Error(err, "failed to send notification email", "notification_id", n.ID.String())
		return
	}
	s.metrics.EmailsSent.WithLabelValues(string(res)).Inc()
}

func validateNotification(n *model.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}
	if n.Type == "" {
		return fmt.Errorf("type is required")
	}
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	if n.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}
