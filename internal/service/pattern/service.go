package pattern

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	apperrors "github.com/jwalitptl/church-api/pkg/errors"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

const maxPreviewDates = 100

type PatternServicer interface {
	CreatePattern(ctx context.Context, p *model.RecurrencePattern) error
	GetPattern(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error)
	UpdatePattern(ctx context.Context, p *model.RecurrencePattern) error
	ListPatterns(ctx context.Context) ([]*model.RecurrencePattern, error)
	PreviewPattern(ctx context.Context, id uuid.UUID, from, to time.Time) ([]time.Time, error)
	CreateTemplate(ctx context.Context, t *model.ServiceTemplate) error
	ListTemplates(ctx context.Context) ([]*model.ServiceTemplate, error)
}

type Service struct {
	patterns  repository.RecurrencePatternRepository
	templates repository.ServiceTemplateRepository
	now       func() time.Time
}

func NewService(patterns repository.RecurrencePatternRepository, templates repository.ServiceTemplateRepository) *Service {
	return &Service{
		patterns:  patterns,
		templates: templates,
		now:       time.Now,
	}
}

func (s *Service) CreatePattern(ctx context.Context, p *model.RecurrencePattern) error {
	if err := s.validatePattern(ctx, p); err != nil {
		return err
	}

	now := s.now()
	p.ID = uuid.New()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.LastGeneratedDate = nil

	if err := s.patterns.Create(ctx, p); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) GetPattern(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error) {
	p, err := s.patterns.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "recurring pattern")
	}
	return p, nil
}

// UpdatePattern replaces the editable fields of p. The watermark and
// creation time always come from the stored row.
func (s *Service) UpdatePattern(ctx context.Context, p *model.RecurrencePattern) error {
	existing, err := s.GetPattern(ctx, p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.LastGeneratedDate = existing.LastGeneratedDate

	if err := s.validatePattern(ctx, p); err != nil {
		return err
	}

	p.UpdatedAt = s.now()
	if err := s.patterns.Update(ctx, p); err != nil {
		return notFoundOr(err, "recurring pattern")
	}
	return nil
}

func (s *Service) ListPatterns(ctx context.Context) ([]*model.RecurrencePattern, error) {
	patterns, err := s.patterns.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return patterns, nil
}

// PreviewPattern lists the dates the pattern yields in [from, to],
// regardless of what has already been generated.
func (s *Service) PreviewPattern(ctx context.Context, id uuid.UUID, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, apperrors.BadRequest("to must not be before from", nil)
	}
	p, err := s.GetPattern(ctx, id)
	if err != nil {
		return nil, err
	}
	dates, err := recurrence.Preview(p.Rule(), from, to, maxPreviewDates)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	return dates, nil
}

func (s *Service) CreateTemplate(ctx context.Context, t *model.ServiceTemplate) error {
	now := s.now()
	t.ID = uuid.New()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.templates.Create(ctx, t); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]*model.ServiceTemplate, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return templates, nil
}

func (s *Service) validatePattern(ctx context.Context, p *model.RecurrencePattern) error {
	if err := recurrence.Validate(p.Rule()); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return apperrors.BadRequest("end_date must not be before start_date", nil)
	}
	if _, err := s.templates.Get(ctx, p.TemplateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.BadRequest("service template does not exist", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}
