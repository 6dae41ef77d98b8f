package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceTemplate is an admin-defined kind of service, e.g. "Sunday Worship".
type ServiceTemplate struct {
	Base
	Name        string  `db:"name" json:"name"`
	DefaultTime string  `db:"default_time" json:"default_time"` // HH:MM
	Location    *string `db:"location" json:"location,omitempty"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}

// ServiceOccurrence is one dated instance of a template.
// (template_id, date) is unique.
type ServiceOccurrence struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TemplateID uuid.UUID `db:"template_id" json:"template_id"`
	Date       time.Time `db:"date" json:"date"`
	Time       string    `db:"time" json:"time"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
