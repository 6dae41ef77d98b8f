package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
)

type followupRepository struct {
	BaseRepository
}

func NewFollowupRepository(base BaseRepository) repository.FollowupRepository {
	return &followupRepository{base}
}

func (r *followupRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]*model.FollowupRecord, error) {
	query := `
		SELECT n.id, n.first_name, n.last_name, n.assigned_to, n.assigned_at,
		       n.followup_status, n.created_at, p.email AS assignee_email
		FROM newcomers n
		LEFT JOIN profiles p ON p.id = n.assigned_to
		WHERE n.assigned_to IS NOT NULL
		  AND n.followup_status = ANY($1)
		  AND COALESCE(n.assigned_at, n.created_at) < $2
		ORDER BY COALESCE(n.assigned_at, n.created_at)
	`
	statuses := pq.StringArray{string(model.FollowupNotStarted), string(model.FollowupInProgress)}

	var records []*model.FollowupRecord
	if err := r.db.SelectContext(ctx, &records, query, statuses, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list overdue follow-ups: %w", err)
	}
	return records, nil
}

func (r *followupRepository) ListDueReminders(ctx context.Context, date time.Time) ([]*model.FollowupReminder, error) {
	query := `
		SELECT fr.id, fr.newcomer_id, fr.assigned_to, fr.reminder_date, fr.note,
		       fr.is_sent, fr.sent_at,
		       TRIM(n.first_name || ' ' || n.last_name) AS newcomer_name,
		       p.email AS assignee_email
		FROM followup_reminders fr
		JOIN newcomers n ON n.id = fr.newcomer_id
		LEFT JOIN profiles p ON p.id = fr.assigned_to
		WHERE fr.reminder_date = $1 AND fr.is_sent = false
	`
	var reminders []*model.FollowupReminder
	if err := r.db.SelectContext(ctx, &reminders, query, model.FormatDate(date)); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

func (r *followupRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `UPDATE followup_reminders SET is_sent = true, sent_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
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
