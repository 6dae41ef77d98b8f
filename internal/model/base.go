package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateLayout is the wire and storage format of civil dates.
const DateLayout = "2006-01-02"

// FormatDate renders a civil date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a civil date as 00:00 UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
