package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/church-api/internal/email"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/metrics"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

type fakeServices struct {
	services  []*model.ServiceOccurrence
	err       error
	requested []time.Time
}

func (f *fakeServices) CreateIfAbsent(context.Context, *model.ServiceOccurrence) (bool, error) {
	return false, nil
}

func (f *fakeServices) ListByDates(_ context.Context, dates []time.Time) ([]*model.ServiceOccurrence, error) {
	f.requested = dates
	if f.err != nil {
		return nil, f.err
	}
	want := map[string]bool{}
	for _, d := range dates {
		want[model.FormatDate(d)] = true
	}
	var out []*model.ServiceOccurrence
	for _, s := range f.services {
		if want[model.FormatDate(s.Date)] {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAssignments struct {
	assignments []*model.AssignmentReminder
	err         error
}

func (f *fakeAssignments) ListConfirmedForServices(_ context.Context, ids []uuid.UUID) ([]*model.AssignmentReminder, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.AssignmentReminder
	for _, a := range f.assignments {
		if want[a.ServiceID] && a.Status == model.AssignmentConfirmed {
			out = append(out, a)
		}
	}
	return out, nil
}

type sent struct {
	n   *model.Notification
	msg *email.Message
}

type fakeNotifier struct {
	sent   []sent
	failOn map[uuid.UUID]bool
}

func (f *fakeNotifier) Send(_ context.Context, n *model.Notification, msg *email.Message) error {
	if f.failOn[n.UserID] {
		return errors.New("insert failed")
	}
	f.sent = append(f.sent, sent{n, msg})
	return nil
}

var today = recurrence.Date(2024, 3, 1)

func service(date time.Time) *model.ServiceOccurrence {
	return &model.ServiceOccurrence{ID: uuid.New(), Date: date, Time: "10:00", Name: "Sunday Worship"}
}

func assignment(svc *model.ServiceOccurrence, status model.AssignmentStatus, mail *string) *model.AssignmentReminder {
	return &model.AssignmentReminder{
		DutyAssignment: model.DutyAssignment{
			ID:        uuid.New(),
			ServiceID: svc.ID,
			MemberID:  uuid.New(),
			Status:    status,
		},
		ServiceName:  svc.Name,
		ServiceDate:  svc.Date,
		ServiceTime:  svc.Time,
		DutyTypeName: "Usher",
		MemberName:   "Ada",
		MemberEmail:  mail,
	}
}

func newTestScanner(services *fakeServices, assignments *fakeAssignments, notifier *fakeNotifier) *Scanner {
	s := NewScanner(services, assignments, notifier, Config{
		OffsetsDays: []int{14, 2},
		PublicURL:   "https://church.example.com/",
	}, metrics.New("test"), logger.Nop())
	s.now = func() time.Time { return today.Add(8 * time.Hour) }
	return s
}

func TestScan_FourteenDayOnly(t *testing.T) {
	addr := "ada@example.com"
	svc := service(today.AddDate(0, 0, 14))
	services := &fakeServices{services: []*model.ServiceOccurrence{svc}}
	assignments := &fakeAssignments{assignments: []*model.AssignmentReminder{
		assignment(svc, model.AssignmentConfirmed, &addr),
		assignment(svc, model.AssignmentPending, nil),
	}}
	notifier := &fakeNotifier{}

	res, err := newTestScanner(services, assignments, notifier).Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalSent)
	require.Len(t, res.Windows, 2)
	assert.Equal(t, &Window{OffsetDays: 14, Date: "2024-03-15", Services: 1, Sent: 1}, res.Windows[0])
	assert.Equal(t, &Window{OffsetDays: 2, Date: "2024-03-03"}, res.Windows[1])

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0].n
	assert.Equal(t, model.NotificationDutyReminder, n.Type)
	assert.Equal(t, "Duty reminder (14-day)", n.Title)
	assert.Equal(t, "/my-duties", n.Link)
	assert.Contains(t, n.Message, "Usher")
	require.NotNil(t, notifier.sent[0].msg)
	assert.Equal(t, addr, notifier.sent[0].msg.To)
	assert.Contains(t, notifier.sent[0].msg.Text, "https://church.example.com/my-duties")
}

func TestScan_TargetsExactOffsets(t *testing.T) {
	services := &fakeServices{services: []*model.ServiceOccurrence{
		service(today.AddDate(0, 0, 13)),
		service(today.AddDate(0, 0, 3)),
	}}
	notifier := &fakeNotifier{}

	res, err := newTestScanner(services, &fakeAssignments{}, notifier).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{recurrence.Date(2024, 3, 15), recurrence.Date(2024, 3, 3)}, services.requested)
	assert.Zero(t, res.TotalSent)
	assert.Empty(t, notifier.sent)
}

func TestScan_TwoDayWithoutEmail(t *testing.T) {
	svc := service(today.AddDate(0, 0, 2))
	services := &fakeServices{services: []*model.ServiceOccurrence{svc}}
	assignments := &fakeAssignments{assignments: []*model.AssignmentReminder{
		assignment(svc, model.AssignmentConfirmed, nil),
	}}
	notifier := &fakeNotifier{}

	res, err := newTestScanner(services, assignments, notifier).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Windows[1].Sent)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Duty reminder (2-day)", notifier.sent[0].n.Title)
	assert.Nil(t, notifier.sent[0].msg)
}

func TestScan_ItemFailureContinues(t *testing.T) {
	svc := service(today.AddDate(0, 0, 2))
	failing := assignment(svc, model.AssignmentConfirmed, nil)
	ok := assignment(svc, model.AssignmentConfirmed, nil)
	services := &fakeServices{services: []*model.ServiceOccurrence{svc}}
	assignments := &fakeAssignments{assignments: []*model.AssignmentReminder{failing, ok}}
	notifier := &fakeNotifier{failOn: map[uuid.UUID]bool{failing.MemberID: true}}

	res, err := newTestScanner(services, assignments, notifier).Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalSent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Windows[1].Failed)
}

func TestScan_ReadFailuresAbort(t *testing.T) {
	notifier := &fakeNotifier{}

	_, err := newTestScanner(&fakeServices{err: errors.New("timeout")}, &fakeAssignments{}, notifier).Scan(context.Background())
	assert.ErrorContains(t, err, "services")

	svc := service(today.AddDate(0, 0, 14))
	_, err = newTestScanner(
		&fakeServices{services: []*model.ServiceOccurrence{svc}},
		&fakeAssignments{err: errors.New("timeout")},
		notifier,
	).Scan(context.Background())
	assert.ErrorContains(t, err, "assignments")
	assert.Empty(t, notifier.sent)
}

func TestOffsets(t *testing.T) {
	assert.Equal(t, []int{14, 7, 2}, offsets([]int{2, 14, 7, 2}))
	assert.Empty(t, offsets(nil))
}
