package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	apperrors "github.com/jwalitptl/church-api/pkg/errors"
	"github.com/jwalitptl/church-api/pkg/logger"
	"github.com/jwalitptl/church-api/pkg/metrics"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

const JobName = "generate_services"

type PatternResult struct {
	PatternID  uuid.UUID    `json:"pattern_id"`
	TemplateID uuid.UUID    `json:"template_id"`
	Created    int          `json:"created"`
	Existing   int          `json:"existing"`
	Failed     int          `json:"failed"`
	Watermark  string       `json:"last_generated_date,omitempty"`
	Error      string       `json:"error,omitempty"`
	Services   []DateResult `json:"services,omitempty"`
}

type RunResult struct {
	Success           bool             `json:"success"`
	PatternsProcessed int              `json:"patterns_processed"`
	ServicesCreated   int              `json:"services_created"`
	ServicesExisting  int              `json:"services_existing"`
	ServicesFailed    int              `json:"services_failed"`
	Results           []*PatternResult `json:"results"`
}

type Config struct {
	LookaheadDays int
	Location      *time.Location
}

// Generator turns active recurrence patterns into services for the
// lookahead window and moves each pattern's watermark forward.
type Generator struct {
	patterns     repository.RecurrencePatternRepository
	materializer *Materializer
	cfg          Config
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewGenerator(patterns repository.RecurrencePatternRepository, materializer *Materializer, cfg Config, m *metrics.Metrics, log *logger.Logger) *Generator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Generator{
		patterns:     patterns,
		materializer: materializer,
		cfg:          cfg,
		metrics:      m,
		logger:       log,
		now:          time.Now,
	}
}

// Run satisfies the worker job signature.
func (g *Generator) Run(ctx context.Context) error {
	_, err := g.GenerateAll(ctx)
	return err
}

// GenerateAll processes every active pattern. Only failing to list the
// patterns is an error; per-pattern problems are reported in the result.
func (g *Generator) GenerateAll(ctx context.Context) (result *RunResult, err error) {
	start := time.Now()
	defer func() { g.metrics.ObserveJob(JobName, time.Since(start).Seconds(), err) }()

	patterns, err := g.patterns.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patterns: %w", err)
	}

	today := recurrence.Today(g.now(), g.cfg.Location)
	result = &RunResult{Success: true, Results: make([]*PatternResult, 0, len(patterns))}
	for _, p := range patterns {
		pr := g.process(ctx, p, today)
		result.add(pr)
	}

	g.logger.Info("service generation finished",
		"patterns", result.PatternsProcessed,
		"created", result.ServicesCreated,
		"existing", result.ServicesExisting,
		"failed", result.ServicesFailed,
	)
	return result, nil
}

// GeneratePattern runs generation for a single pattern on demand.
func (g *Generator) GeneratePattern(ctx context.Context, id uuid.UUID) (*PatternResult, error) {
	p, err := g.patterns.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("recurring pattern", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !p.IsActive {
		return nil, apperrors.BadRequest("recurring pattern is inactive", nil)
	}
	return g.process(ctx, p, recurrence.Today(g.now(), g.cfg.Location)), nil
}

func (g *Generator) process(ctx context.Context, p *model.RecurrencePattern, today time.Time) *PatternResult {
	pr := &PatternResult{PatternID: p.ID, TemplateID: p.TemplateID}
	log := g.logger.WithFields(map[string]interface{}{"pattern_id": p.ID.String()})

	windowEnd := today.AddDate(0, 0, g.cfg.LookaheadDays)
	dates, err := recurrence.Evaluate(p.Rule(), today, windowEnd)
	if err != nil {
		pr.Error = err.Error()
		g.metrics.CountItem(JobName, "invalid_pattern")
		log.Warn("skipping invalid pattern", "error", err.Error())
		return pr
	}
	if len(dates) == 0 {
		return pr
	}

	results, err := g.materializer.Materialize(ctx, p.TemplateID, dates)
	if err != nil {
		pr.Error = err.Error()
		g.metrics.CountItem(JobName, string(OutcomeFailed))
		log.Error(err, "failed to materialize pattern")
		return pr
	}
	pr.Services = results
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCreated:
			pr.Created++
		case OutcomeExisted:
			pr.Existing++
		case OutcomeFailed:
			pr.Failed++
		}
		g.metrics.CountItem(JobName, string(r.Outcome))
	}

	mark, ok := Watermark(results)
	if !ok || (p.LastGeneratedDate != nil && !mark.After(*p.LastGeneratedDate)) {
		return pr
	}
	if err := g.patterns.AdvanceWatermark(ctx, p.ID, mark); err != nil {
		pr.Error = fmt.Sprintf("failed to advance watermark: %v", err)
		log.Error(err, "failed to advance watermark", "date", model.FormatDate(mark))
		return pr
	}
	p.LastGeneratedDate = &mark
	pr.Watermark = model.FormatDate(mark)
	return pr
}

func (r *RunResult) add(pr *PatternResult) {
	r.PatternsProcessed++
	r.ServicesCreated += pr.Created
	r.ServicesExisting += pr.Existing
	r.ServicesFailed += pr.Failed
	r.Results = append(r.Results, pr)
}
