package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/metrics"
)

type fakeRepo struct {
	created []*model.Notification
	err     error
}

func (r *fakeRepo) Create(_ context.Context, n *model.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeRepo) ExistsUnread(context.Context, uuid.UUID, model.NotificationType, string) (bool, error) {
	return false, nil
}

type fakeEmail struct {
	sent []email.Message
	res  email.Result
	err  error
}

func (e *fakeEmail) Send(_ context.Context, msg email.Message) (email.Result, error) {
	e.sent = append(e.sent, msg)
	return e.res, e.err
}

type fakeBroker struct {
	published []interface{}
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, message)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func newTestService(repo *fakeRepo, mail *fakeEmail, broker *fakeBroker) (*service, *metrics.Metrics) {
	m := metrics.New("test")
	svc := NewService(repo, mail, broker, m, logger.Nop()).(*service)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc, m
}

func validNotification() *model.Notification {
	return &model.Notification{
		UserID:  uuid.New(),
		Type:    model.NotificationDutyReminder,
		Title:   "Duty reminder (14-day)",
		Message: "You are serving as Usher",
		Link:    "/my-duties",
	}
}

func TestSend_StoresAndFansOut(t *testing.T) {
	repo, mail, broker := &fakeRepo{}, &fakeEmail{res: email.ResultSent}, &fakeBroker{}
	svc, m := newTestService(repo, mail, broker)

	n := validNotification()
	n.IsRead = true
	err := svc.Send(context.Background(), n, &email.Message{To: "m@example.com", Subject: "s"})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.False(t, n.IsRead)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), n.CreatedAt)
	assert.Len(t, broker.published, 1)
	assert.Len(t, mail.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("duty_reminder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("sent")))
}

func TestSend_StoreFailureIsReturned(t *testing.T) {
	repo, mail, broker := &fakeRepo{err: errors.New("db down")}, &fakeEmail{}, &fakeBroker{}
	svc, _ := newTestService(repo, mail, broker)

	err := svc.Send(context.Background(), validNotification(), &email.Message{To: "m@example.com"})
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, broker.published)
	assert.Empty(t, mail.sent)
}

func TestSend_DeliveryFailuresAreBestEffort(t *testing.T) {
	repo := &fakeRepo{}
	mail := &fakeEmail{err: errors.New("smtp timeout")}
	broker := &fakeBroker{err: errors.New("breaker open")}
	svc, m := newTestService(repo, mail, broker)

	err := svc.Send(context.Background(), validNotification(), &email.Message{To: "m@example.com"})
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerPublishes.WithLabelValues("error")))
}

func TestSend_SkippedEmailAndNoRecipient(t *testing.T) {
	repo, mail, broker := &fakeRepo{}, &fakeEmail{res: email.ResultSkipped}, &fakeBroker{}
	svc, m := newTestService(repo, mail, broker)

	require.NoError(t, svc.Send(context.Background(), validNotification(), &email.Message{To: "m@example.com"}))
	require.NoError(t, svc.Send(context.Background(), validNotification(), &email.Message{}))
	require.NoError(t, svc.Send(context.Background(), validNotification(), nil))

	assert.Len(t, mail.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("skipped")))
}

func TestSend_Validation(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{}, &fakeEmail{}, &fakeBroker{})

	tests := []struct {
		name   string
		mutate func(n *model.Notification)
	}{
		{"missing user", func(n *model.Notification) { n.UserID = uuid.Nil }},
		{"missing type", func(n *model.Notification) { n.Type = "" }},
		{"missing title", func(n *model.Notification) { n.Title = "" }},
		{"missing message", func(n *model.Notification) { n.Message = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := validNotification()
			tt.mutate(n)
			assert.Error(t, svc.Send(context.Background(), n, nil))
		})
	}
}
