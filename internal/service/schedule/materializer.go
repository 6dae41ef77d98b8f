package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/pkg/logger"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExisted Outcome = "existed"
	OutcomeFailed  Outcome = "failed"
)

// DateResult is the outcome of materializing one date.
type DateResult struct {
	Date      time.Time
	ServiceID uuid.UUID
	Outcome   Outcome
	Error     string
}

func (r DateResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Date      string     `json:"date"`
		ServiceID *uuid.UUID `json:"service_id,omitempty"`
		Outcome   Outcome    `json:"outcome"`
		Error     string     `json:"error,omitempty"`
	}{
		Date:    model.FormatDate(r.Date),
		Outcome: r.Outcome,
		Error:   r.Error,
	}
	if r.ServiceID != uuid.Nil {
		out.ServiceID = &r.ServiceID
	}
	return json.Marshal(out)
}

type Materializer struct {
	templates repository.ServiceTemplateRepository
	services  repository.ServiceRepository
	logger    *logger.Logger
	now       func() time.Time
}

func NewMaterializer(templates repository.ServiceTemplateRepository, services repository.ServiceRepository, log *logger.Logger) *Materializer {
	return &Materializer{
		templates: templates,
		services:  services,
		logger:    log,
		now:       time.Now,
	}
}

// Materialize creates one service per date for templateID. Dates are handled
// in ascending order without duplicates, and a failed date does not stop the
// ones after it. The only returned error is failing to read the template.
func (m *Materializer) Materialize(ctx context.Context, templateID uuid.UUID, dates []time.Time) ([]DateResult, error) {
	tmpl, err := m.templates.Get(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", templateID, err)
	}

	results := make([]DateResult, 0, len(dates))
	for _, date := range normalize(dates) {
		occ := &model.ServiceOccurrence{
			ID:         uuid.New(),
			TemplateID: tmpl.ID,
			Date:       date,
			Time:       tmpl.DefaultTime,
			Name:       tmpl.Name,
			CreatedAt:  m.now(),
		}

		res := DateResult{Date: date}
		created, err := m.services.CreateIfAbsent(ctx, occ)
		switch {
		case err != nil:
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			m.logger.Error(err, "failed to materialize service",
				"template_id", templateID.String(), "date", model.FormatDate(date))
		case created:
			res.Outcome = OutcomeCreated
			res.ServiceID = occ.ID
		default:
			res.Outcome = OutcomeExisted
			res.ServiceID = occ.ID
		}
		results = append(results, res)
	}
	return results, nil
}

// Watermark returns the last date of the leading run of non-failed results.
// results must be in ascending date order, as Materialize returns them.
func Watermark(results []DateResult) (time.Time, bool) {
	var (
		mark time.Time
		ok   bool
	)
	for _, r := range results {
		if r.Outcome == OutcomeFailed {
			break
		}
		mark, ok = r.Date, true
	}
	return mark, ok
}

func normalize(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	uniq := out[:0]
	for _, d := range out {
		if len(uniq) > 0 && d.Equal(uniq[len(uniq)-1]) {
			continue
		}
		uniq = append(uniq, d)
	}
	return uniq
}
