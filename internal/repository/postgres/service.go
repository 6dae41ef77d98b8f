package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
)

type templateRepository struct {
	BaseRepository
}

func NewServiceTemplateRepository(base BaseRepository) repository.ServiceTemplateRepository {
	return &templateRepository{base}
}

func (r *templateRepository) Create(ctx context.Context, t *model.ServiceTemplate) error {
	query := `
		INSERT INTO service_templates (id, name, default_time, location, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.DefaultTime,
		t.Location,
		t.IsActive,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServiceTemplate, error) {
	query := `
		SELECT id, name, to_char(default_time, 'HH24:MI') AS default_time, location,
		       is_active, created_at, updated_at
		FROM service_templates
		WHERE id = $1
	`
	var t model.ServiceTemplate
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, fmt.Errorf("failed to get service template: %w", notFound(err))
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*model.ServiceTemplate, error) {
	query := `
		SELECT id, name, to_char(default_time, 'HH24:MI') AS default_time, location,
		       is_active, created_at, updated_at
		FROM service_templates
		ORDER BY name
	`
	var templates []*model.ServiceTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("failed to list service templates: %w", err)
	}
	return templates, nil
}

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

// CreateIfAbsent relies on the unique (template_id, date) constraint, so two
// concurrent runs cannot both insert the same occurrence.
func (r *serviceRepository) CreateIfAbsent(ctx context.Context, s *model.ServiceOccurrence) (bool, error) {
	insert := `
		INSERT INTO services (id, template_id, date, time, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (template_id, date) DO NOTHING
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, insert,
		s.ID,
		s.TemplateID,
		model.FormatDate(s.Date),
		s.Time,
		s.Name,
		s.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create service: %w", err)
	}
	inserted := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to create service: %w", err)
	}
	if inserted {
		return true, nil
	}

	existing := `SELECT id FROM services WHERE template_id = $1 AND date = $2`
	if err := r.db.GetContext(ctx, &s.ID, existing, s.TemplateID, model.FormatDate(s.Date)); err != nil {
		return false, fmt.Errorf("failed to load existing service: %w", notFound(err))
	}
	return false, nil
}

func (r *serviceRepository) ListByDates(ctx context.Context, dates []time.Time) ([]*model.ServiceOccurrence, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, template_id, date, to_char(time, 'HH24:MI') AS time, name, created_at
		FROM services
		WHERE date IN (?)
		ORDER BY date, time
	`, dateStrings(dates))
	if err != nil {
		return nil, fmt.Errorf("failed to build service query: %w", err)
	}

	var services []*model.ServiceOccurrence
	if err := r.db.SelectContext(ctx, &services, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
