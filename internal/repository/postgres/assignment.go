package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
)

type assignmentRepository struct {
	BaseRepository
}

func NewAssignmentRepository(base BaseRepository) repository.AssignmentRepository {
	return &assignmentRepository{base}
}

func (r *assignmentRepository) ListConfirmedForServices(ctx context.Context, serviceIDs []uuid.UUID) ([]*model.AssignmentReminder, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT a.id, a.service_id, a.member_id, a.duty_type_id, a.status,
		       s.name AS service_name, s.date AS service_date,
		       to_char(s.time, 'HH24:MI') AS service_time,
		       dt.name AS duty_type_name,
		       COALESCE(p.full_name, '') AS member_name, p.email AS member_email
		FROM duty_assignments a
		JOIN services s ON s.id = a.service_id
		JOIN duty_types dt ON dt.id = a.duty_type_id
		LEFT JOIN profiles p ON p.id = a.member_id
		WHERE a.status = ? AND a.service_id IN (?)
		ORDER BY s.date, s.time
	`, model.AssignmentConfirmed, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment query: %w", err)
	}

	var assignments []*model.AssignmentReminder
	if err := r.db.SelectContext(ctx, &assignments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list confirmed assignments: %w", err)
	}
	return assignments, nil
}
