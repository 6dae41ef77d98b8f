package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/pkg/recurrence"
)

// RecurrencePattern drives generation of services from a template.
// LastGeneratedDate only moves forward.
type RecurrencePattern struct {
	Base
	TemplateID        uuid.UUID              `json:"template_id" db:"template_id"`
	PatternType       recurrence.PatternType `json:"pattern_type" db:"pattern_type"`
	DayOfWeek         int                    `json:"day_of_week" db:"day_of_week"`
	WeekOfMonth       *int                   `json:"week_of_month,omitempty" db:"week_of_month"`
	IntervalWeeks     *int                   `json:"interval_weeks,omitempty" db:"interval_weeks"`
	StartDate         time.Time              `json:"start_date" db:"start_date"`
	EndDate           *time.Time             `json:"end_date,omitempty" db:"end_date"`
	LastGeneratedDate *time.Time             `json:"last_generated_date,omitempty" db:"last_generated_date"`
	IsActive          bool                   `json:"is_active" db:"is_active"`
}

// Rule returns the evaluator view of the pattern.
func (p *RecurrencePattern) Rule() recurrence.Pattern {
	return recurrence.Pattern{
		Type:          p.PatternType,
		DayOfWeek:     p.DayOfWeek,
		WeekOfMonth:   p.WeekOfMonth,
		IntervalWeeks: p.IntervalWeeks,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		LastGenerated: p.LastGeneratedDate,
	}
}
