package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type FollowupStatus string

const (
	FollowupNotStarted FollowupStatus = "not_started"
	FollowupInProgress FollowupStatus = "in_progress"
	FollowupContacted  FollowupStatus = "contacted"
	FollowupCompleted  FollowupStatus = "completed"
)

// FollowupRecord is a newcomer awaiting pastoral follow-up.
type FollowupRecord struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	AssignedTo     *uuid.UUID     `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedAt     *time.Time     `db:"assigned_at" json:"assigned_at,omitempty"`
	FollowupStatus FollowupStatus `db:"followup_status" json:"followup_status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	AssigneeEmail  *string        `db:"assignee_email" json:"-"`
}

func (r *FollowupRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Origin is the instant overdue time is measured from.
func (r *FollowupRecord) Origin() time.Time {
	if r.AssignedAt != nil {
		return *r.AssignedAt
	}
	return r.CreatedAt
}

// FollowupReminder is a dated reminder an assignee set for a newcomer.
type FollowupReminder struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	NewcomerID    uuid.UUID  `db:"newcomer_id" json:"newcomer_id"`
	AssignedTo    uuid.UUID  `db:"assigned_to" json:"assigned_to"`
	ReminderDate  time.Time  `db:"reminder_date" json:"reminder_date"`
	Note          *string    `db:"note" json:"note,omitempty"`
	IsSent        bool       `db:"is_sent" json:"is_sent"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	NewcomerName  string     `db:"newcomer_name" json:"-"`
	AssigneeEmail *string    `db:"assignee_email" json:"-"`
}
