package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
)

type serviceKey struct {
	templateID uuid.UUID
	date       string
}

type fakeServiceRepo struct {
	rows     map[serviceKey]uuid.UUID
	failOn   map[string]bool
	attempts int
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{rows: map[serviceKey]uuid.UUID{}, failOn: map[string]bool{}}
}

func (r *fakeServiceRepo) CreateIfAbsent(_ context.Context, s *model.ServiceOccurrence) (bool, error) {
	r.attempts++
	day := model.FormatDate(s.Date)
	if r.failOn[day] {
		return false, errors.New("insert failed")
	}
	key := serviceKey{s.TemplateID, day}
	if id, ok := r.rows[key]; ok {
		s.ID = id
		return false, nil
	}
	r.rows[key] = s.ID
	return true, nil
}

func (r *fakeServiceRepo) ListByDates(context.Context, []time.Time) ([]*model.ServiceOccurrence, error) {
	return nil, nil
}

type fakeTemplateRepo struct {
	templates map[uuid.UUID]*model.ServiceTemplate
}

func (r *fakeTemplateRepo) Create(_ context.Context, t *model.ServiceTemplate) error {
	r.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) Get(_ context.Context, id uuid.UUID) (*model.ServiceTemplate, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (r *fakeTemplateRepo) List(context.Context) ([]*model.ServiceTemplate, error) {
	return nil, nil
}

type fakePatternRepo struct {
	patterns   []*model.RecurrencePattern
	listErr    error
	advanceErr error
	advanced   map[uuid.UUID]time.Time
}

func (r *fakePatternRepo) Create(context.Context, *model.RecurrencePattern) error { return nil }

func (r *fakePatternRepo) Get(_ context.Context, id uuid.UUID) (*model.RecurrencePattern, error) {
	for _, p := range r.patterns {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatternRepo) Update(context.Context, *model.RecurrencePattern) error { return nil }

func (r *fakePatternRepo) List(context.Context) ([]*model.RecurrencePattern, error) {
	return r.patterns, nil
}

func (r *fakePatternRepo) ListActive(context.Context) ([]*model.RecurrencePattern, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var active []*model.RecurrencePattern
	for _, p := range r.patterns {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

func (r *fakePatternRepo) AdvanceWatermark(_ context.Context, id uuid.UUID, date time.Time) error {
	if r.advanceErr != nil {
		return r.advanceErr
	}
	if r.advanced == nil {
		r.advanced = map[uuid.UUID]time.Time{}
	}
	r.advanced[id] = date
	return nil
}
