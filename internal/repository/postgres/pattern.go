package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
)

type patternRepository struct {
	BaseRepository
}

func NewRecurrencePatternRepository(base BaseRepository) repository.RecurrencePatternRepository {
	return &patternRepository{base}
}

const patternColumns = `
	id, template_id, pattern_type, day_of_week, week_of_month, interval_weeks,
	start_date, end_date, last_generated_date, is_active, created_at, updated_at`

func (r *patternRepository) Create(ctx context.Context, p *model.RecurrencePattern) error {
	query := `
		INSERT INTO recurring_patterns (` + patternColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.TemplateID,
		p.PatternType,
		p.DayOfWeek,
		p.WeekOfMonth,
		p.IntervalWeeks,
		model.FormatDate(p.StartDate),
		nullableDate(p.EndDate),
		nullableDate(p.LastGeneratedDate),
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring pattern: %w", err)
	}
	return nil
}

func (r *patternRepository) Get(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error) {
	query := `SELECT ` + patternColumns + ` FROM recurring_patterns WHERE id = $1`

	var p model.RecurrencePattern
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, fmt.Errorf("failed to get recurring pattern: %w", notFound(err))
	}
	return &p, nil
}

// Update leaves last_generated_date alone; only generation moves it.
func (r *patternRepository) Update(ctx context.Context, p *model.RecurrencePattern) error {
	query := `
		UPDATE recurring_patterns
		SET template_id = $1, pattern_type = $2, day_of_week = $3, week_of_month = $4,
		    interval_weeks = $5, start_date = $6, end_date = $7, is_active = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		p.TemplateID,
		p.PatternType,
		p.DayOfWeek,
		p.WeekOfMonth,
		p.IntervalWeeks,
		model.FormatDate(p.StartDate),
		nullableDate(p.EndDate),
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring pattern: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patternRepository) List(ctx context.Context) ([]*model.RecurrencePattern, error) {
	return r.list(ctx, `SELECT `+patternColumns+` FROM recurring_patterns ORDER BY created_at`)
}

func (r *patternRepository) ListActive(ctx context.Context) ([]*model.RecurrencePattern, error) {
	return r.list(ctx, `SELECT `+patternColumns+` FROM recurring_patterns WHERE is_active ORDER BY created_at`)
}

func (r *patternRepository) list(ctx context.Context, query string) ([]*model.RecurrencePattern, error) {
	var patterns []*model.RecurrencePattern
	if err := r.db.SelectContext(ctx, &patterns, query); err != nil {
		return nil, fmt.Errorf("failed to list recurring patterns: %w", err)
	}
	return patterns, nil
}

func (r *patternRepository) AdvanceWatermark(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `
		UPDATE recurring_patterns
		SET last_generated_date = $2, updated_at = now()
		WHERE id = $1 AND (last_generated_date IS NULL OR last_generated_date < $2)
	`
	if _, err := r.db.ExecContext(ctx, query, id, model.FormatDate(date)); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}
