package model

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentConfirmed AssignmentStatus = "confirmed"
	AssignmentDeclined  AssignmentStatus = "declined"
)

type DutyAssignment struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	ServiceID  uuid.UUID        `db:"service_id" json:"service_id"`
	MemberID   uuid.UUID        `db:"member_id" json:"member_id"`
	DutyTypeID uuid.UUID        `db:"duty_type_id" json:"duty_type_id"`
	Status     AssignmentStatus `db:"status" json:"status"`
}

// AssignmentReminder is a confirmed assignment joined with what a reminder
// needs to say.
type AssignmentReminder struct {
	DutyAssignment
	ServiceName  string    `db:"service_name"`
	ServiceDate  time.Time `db:"service_date"`
	ServiceTime  string    `db:"service_time"`
	DutyTypeName string    `db:"duty_type_name"`
	MemberName   string    `db:"member_name"`
	MemberEmail  *string   `db:"member_email"`
}
