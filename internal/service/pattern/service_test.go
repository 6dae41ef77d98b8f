package pattern

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	apperrors "github.com/jwalitptl/church-api/pkg/errors"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

type memPatterns struct {
	rows map[uuid.UUID]*model.RecurrencePattern
}

func (m *memPatterns) Create(_ context.Context, p *model.RecurrencePattern) error {
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPatterns) Get(_ context.Context, id uuid.UUID) (*model.RecurrencePattern, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPatterns) Update(_ context.Context, p *model.RecurrencePattern) error {
	if _, ok := m.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPatterns) List(context.Context) ([]*model.RecurrencePattern, error) {
	var out []*model.RecurrencePattern
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPatterns) ListActive(ctx context.Context) ([]*model.RecurrencePattern, error) {
	return m.List(ctx)
}

func (m *memPatterns) AdvanceWatermark(context.Context, uuid.UUID, time.Time) error { return nil }

type memTemplates struct {
	rows map[uuid.UUID]*model.ServiceTemplate
}

func (m *memTemplates) Create(_ context.Context, t *model.ServiceTemplate) error {
	m.rows[t.ID] = t
	return nil
}

func (m *memTemplates) Get(_ context.Context, id uuid.UUID) (*model.ServiceTemplate, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (m *memTemplates) List(context.Context) ([]*model.ServiceTemplate, error) {
	var out []*model.ServiceTemplate
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memPatterns, uuid.UUID) {
	t.Helper()
	patterns := &memPatterns{rows: map[uuid.UUID]*model.RecurrencePattern{}}
	templates := &memTemplates{rows: map[uuid.UUID]*model.ServiceTemplate{}}
	svc := NewService(patterns, templates)

	tmpl := &model.ServiceTemplate{Name: "Sunday Worship", DefaultTime: "10:00", IsActive: true}
	require.NoError(t, svc.CreateTemplate(context.Background(), tmpl))
	return svc, patterns, tmpl.ID
}

func weekly(templateID uuid.UUID) *model.RecurrencePattern {
	return &model.RecurrencePattern{
		TemplateID:  templateID,
		PatternType: recurrence.Weekly,
		DayOfWeek:   0,
		StartDate:   recurrence.Date(2024, 1, 1),
		IsActive:    true,
	}
}

func TestCreatePattern(t *testing.T) {
	svc, patterns, templateID := newTestService(t)

	p := weekly(templateID)
	wm := recurrence.Date(2024, 6, 1)
	p.LastGeneratedDate = &wm
	require.NoError(t, svc.CreatePattern(context.Background(), p))

	assert.NotEqual(t, uuid.Nil, p.ID)
	stored := patterns.rows[p.ID]
	require.NotNil(t, stored)
	assert.Nil(t, stored.LastGeneratedDate)
}

func TestCreatePattern_Rejects(t *testing.T) {
	svc, _, templateID := newTestService(t)

	tests := []struct {
		name   string
		mutate func(p *model.RecurrencePattern)
	}{
		{"bad weekday", func(p *model.RecurrencePattern) { p.DayOfWeek = 7 }},
		{"monthly without week", func(p *model.RecurrencePattern) { p.PatternType = recurrence.Monthly }},
		{"custom zero interval", func(p *model.RecurrencePattern) {
			zero := 0
			p.PatternType = recurrence.Custom
			p.IntervalWeeks = &zero
		}},
		{"end before start", func(p *model.RecurrencePattern) {
			end := recurrence.Date(2023, 12, 1)
			p.EndDate = &end
		}},
		{"unknown template", func(p *model.RecurrencePattern) { p.TemplateID = uuid.New() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := weekly(templateID)
			tt.mutate(p)
			err := svc.CreatePattern(context.Background(), p)
			assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
		})
	}
}

func TestUpdatePattern_KeepsWatermark(t *testing.T) {
	svc, patterns, templateID := newTestService(t)

	p := weekly(templateID)
	require.NoError(t, svc.CreatePattern(context.Background(), p))
	wm := recurrence.Date(2024, 2, 4)
	patterns.rows[p.ID].LastGeneratedDate = &wm

	update := weekly(templateID)
	update.ID = p.ID
	update.DayOfWeek = 3
	update.IsActive = false
	require.NoError(t, svc.UpdatePattern(context.Background(), update))

	stored := patterns.rows[p.ID]
	assert.Equal(t, 3, stored.DayOfWeek)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.LastGeneratedDate)
	assert.Equal(t, wm, *stored.LastGeneratedDate)

	missing := weekly(templateID)
	missing.ID = uuid.New()
	err := svc.UpdatePattern(context.Background(), missing)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestPreviewPattern(t *testing.T) {
	svc, patterns, templateID := newTestService(t)

	p := weekly(templateID)
	require.NoError(t, svc.CreatePattern(context.Background(), p))
	wm := recurrence.Date(2024, 1, 31)
	patterns.rows[p.ID].LastGeneratedDate = &wm

	dates, err := svc.PreviewPattern(context.Background(), p.ID, recurrence.Date(2024, 1, 1), recurrence.Date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		recurrence.Date(2024, 1, 7),
		recurrence.Date(2024, 1, 14),
		recurrence.Date(2024, 1, 21),
		recurrence.Date(2024, 1, 28),
	}, dates)

	_, err = svc.PreviewPattern(context.Background(), p.ID, recurrence.Date(2024, 2, 1), recurrence.Date(2024, 1, 1))
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	_, err = svc.PreviewPattern(context.Background(), uuid.New(), recurrence.Date(2024, 1, 1), recurrence.Date(2024, 1, 31))
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}
