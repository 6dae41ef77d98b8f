package pattern

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/church-api/internal/middleware"
	"github.com/jwalitptl/church-api/internal/model"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/church-api/pkg/errors"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

type mockService struct {
	CreatePatternFunc  func(ctx context.Context, p *model.RecurrencePattern) error
	GetPatternFunc     func(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error)
	UpdatePatternFunc  func(ctx context.Context, p *model.RecurrencePattern) error
	ListPatternsFunc   func(ctx context.Context) ([]*model.RecurrencePattern, error)
	PreviewPatternFunc func(ctx context.Context, id uuid.UUID, from, to time.Time) ([]time.Time, error)
	CreateTemplateFunc func(ctx context.Context, t *model.ServiceTemplate) error
	ListTemplatesFunc  func(ctx context.Context) ([]*model.ServiceTemplate, error)
}

func (m *mockService) CreatePattern(ctx context.Context, p *model.RecurrencePattern) error {
	return m.CreatePatternFunc(ctx, p)
}

func (m *mockService) GetPattern(ctx context.Context, id uuid.UUID) (*model.RecurrencePattern, error) {
	return m.GetPatternFunc(ctx, id)
}

func (m *mockService) UpdatePattern(ctx context.Context, p *model.RecurrencePattern) error {
	return m.UpdatePatternFunc(ctx, p)
}

func (m *mockService) ListPatterns(ctx context.Context) ([]*model.RecurrencePattern, error) {
	return m.ListPatternsFunc(ctx)
}

func (m *mockService) PreviewPattern(ctx context.Context, id uuid.UUID, from, to time.Time) ([]time.Time, error) {
	return m.PreviewPatternFunc(ctx, id, from, to)
}

func (m *mockService) CreateTemplate(ctx context.Context, t *model.ServiceTemplate) error {
	return m.CreateTemplateFunc(ctx, t)
}

func (m *mockService) ListTemplates(ctx context.Context) ([]*model.ServiceTemplate, error) {
	return m.ListTemplatesFunc(ctx)
}

type mockGenerator struct {
	GeneratePatternFunc func(ctx context.Context, id uuid.UUID) (*schedule.PatternResult, error)
}

func (m *mockGenerator) GeneratePattern(ctx context.Context, id uuid.UUID) (*schedule.PatternResult, error) {
	return m.GeneratePatternFunc(ctx, id)
}

func setupRouter(svc *mockService, gen *mockGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Validation(middleware.DefaultValidationConfig()))
	NewHandler(svc, gen, time.UTC).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestCreatePattern(t *testing.T) {
	templateID := uuid.New()
	var got *model.RecurrencePattern
	svc := &mockService{CreatePatternFunc: func(_ context.Context, p *model.RecurrencePattern) error {
		p.ID = uuid.New()
		got = p
		return nil
	}}
	r := setupRouter(svc, &mockGenerator{})

	w, body := do(r, http.MethodPost, "/api/v1/recurring-patterns", map[string]interface{}{
		"template_id":   templateID.String(),
		"pattern_type":  "monthly",
		"day_of_week":   0,
		"week_of_month": 2,
		"start_date":    "2024-01-01",
		"end_date":      "2024-12-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NotNil(t, got)
	assert.Equal(t, templateID, got.TemplateID)
	assert.Equal(t, recurrence.Monthly, got.PatternType)
	assert.Equal(t, 0, got.DayOfWeek)
	assert.Equal(t, recurrence.Date(2024, 1, 1), got.StartDate)
	assert.True(t, got.IsActive)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2024-01-01", data["start_date"])
	assert.Equal(t, "2024-12-31", data["end_date"])
}

func TestCreatePattern_ValidationErrors(t *testing.T) {
	svc := &mockService{CreatePatternFunc: func(context.Context, *model.RecurrencePattern) error {
		t.Fatal("service must not be called")
		return nil
	}}
	r := setupRouter(svc, &mockGenerator{})

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"weekday out of range", map[string]interface{}{
			"template_id": uuid.NewString(), "pattern_type": "weekly", "day_of_week": 7, "start_date": "2024-01-01",
		}, "day_of_week"},
		{"missing weekday", map[string]interface{}{
			"template_id": uuid.NewString(), "pattern_type": "weekly", "start_date": "2024-01-01",
		}, "day_of_week"},
		{"unknown type", map[string]interface{}{
			"template_id": uuid.NewString(), "pattern_type": "daily", "day_of_week": 1, "start_date": "2024-01-01",
		}, "pattern_type"},
		{"bad date", map[string]interface{}{
			"template_id": uuid.NewString(), "pattern_type": "weekly", "day_of_week": 1, "start_date": "01/01/2024",
		}, "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, http.MethodPost, "/api/v1/recurring-patterns", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			errs, ok := body["errors"].([]interface{})
			require.True(t, ok, w.Body.String())
			assert.Equal(t, tt.field, errs[0].(map[string]interface{})["field"])
		})
	}
}

func TestCreatePattern_MalformedBody(t *testing.T) {
	r := setupRouter(&mockService{}, &mockGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recurring-patterns", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestGetPattern(t *testing.T) {
	id := uuid.New()
	svc := &mockService{GetPatternFunc: func(_ context.Context, got uuid.UUID) (*model.RecurrencePattern, error) {
		if got != id {
			return nil, apperrors.NotFound("recurring pattern", repository.ErrNotFound)
		}
		wm := recurrence.Date(2024, 2, 4)
		return &model.RecurrencePattern{
			Base:              model.Base{ID: id},
			PatternType:       recurrence.Weekly,
			StartDate:         recurrence.Date(2024, 1, 1),
			LastGeneratedDate: &wm,
			IsActive:          true,
		}, nil
	}}
	r := setupRouter(svc, &mockGenerator{})

	w, body := do(r, http.MethodGet, "/api/v1/recurring-patterns/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-02-04", body["data"].(map[string]interface{})["last_generated_date"])

	w, body = do(r, http.MethodGet, "/api/v1/recurring-patterns/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "recurring pattern not found", body["message"])

	w, _ = do(r, http.MethodGet, "/api/v1/recurring-patterns/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewPattern(t *testing.T) {
	var gotFrom, gotTo time.Time
	svc := &mockService{PreviewPatternFunc: func(_ context.Context, _ uuid.UUID, from, to time.Time) ([]time.Time, error) {
		gotFrom, gotTo = from, to
		return []time.Time{recurrence.Date(2024, 1, 7), recurrence.Date(2024, 1, 14)}, nil
	}}
	r := setupRouter(svc, &mockGenerator{})

	w, body := do(r, http.MethodGet, "/api/v1/recurring-patterns/"+uuid.NewString()+"/preview?from=2024-01-01&to=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, recurrence.Date(2024, 1, 1), gotFrom)
	assert.Equal(t, recurrence.Date(2024, 1, 15), gotTo)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"2024-01-07", "2024-01-14"}, data["dates"])

	w, _ = do(r, http.MethodGet, "/api/v1/recurring-patterns/"+uuid.NewString()+"/preview?from=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneratePattern(t *testing.T) {
	id := uuid.New()
	gen := &mockGenerator{GeneratePatternFunc: func(_ context.Context, got uuid.UUID) (*schedule.PatternResult, error) {
		if got != id {
			return nil, apperrors.BadRequest("recurring pattern is inactive", nil)
		}
		return &schedule.PatternResult{PatternID: id, Created: 4, Watermark: "2024-01-28"}, nil
	}}
	r := setupRouter(&mockService{}, gen)

	w, body := do(r, http.MethodPost, "/api/v1/recurring-patterns/"+id.String()+"/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["created"])
	assert.Equal(t, "2024-01-28", data["last_generated_date"])

	w, _ = do(r, http.MethodPost, "/api/v1/recurring-patterns/"+uuid.NewString()+"/generate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTemplate(t *testing.T) {
	svc := &mockService{CreateTemplateFunc: func(_ context.Context, tmpl *model.ServiceTemplate) error {
		tmpl.ID = uuid.New()
		return nil
	}}
	r := setupRouter(svc, &mockGenerator{})

	w, _ := do(r, http.MethodPost, "/api/v1/service-templates", map[string]interface{}{
		"name": "Sunday Worship", "default_time": "10:00",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, body := do(r, http.MethodPost, "/api/v1/service-templates", map[string]interface{}{
		"name": "Sunday Worship", "default_time": "25:99",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := body["errors"].([]interface{})
	assert.Equal(t, "default_time", errs[0].(map[string]interface{})["field"])
}
