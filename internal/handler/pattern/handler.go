package pattern

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/church-api/internal/handler"
	"github.com/jwalitptl/church-api/internal/model"
	patternService "github.com/jwalitptl/church-api/internal/service/pattern"
	"github.com/jwalitptl/church-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/church-api/pkg/errors"
	"github.com/jwalitptl/church-api/pkg/recurrence"
)

const defaultPreviewDays = 90

type Generator interface {
	GeneratePattern(ctx context.Context, id uuid.UUID) (*schedule.PatternResult, error)
}

type Handler struct {
	service   patternService.PatternServicer
	generator Generator
	location  *time.Location
}

func NewHandler(service patternService.PatternServicer, generator Generator, location *time.Location) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{service: service, generator: generator, location: location}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patterns := r.Group("/recurring-patterns")
	{
		patterns.POST("", h.CreatePattern)
		patterns.GET("", h.ListPatterns)
		patterns.GET("/:id", h.GetPattern)
		patterns.PUT("/:id", h.UpdatePattern)
		patterns.GET("/:id/preview", h.PreviewPattern)
		patterns.POST("/:id/generate", h.GeneratePattern)
	}

	templates := r.Group("/service-templates")
	{
		templates.POST("", h.CreateTemplate)
		templates.GET("", h.ListTemplates)
	}
}

type patternRequest struct {
	TemplateID    string  `json:"template_id" binding:"required,uuid"`
	PatternType   string  `json:"pattern_type" binding:"required,patterntype"`
	DayOfWeek     *int    `json:"day_of_week" binding:"required,weekday"`
	WeekOfMonth   *int    `json:"week_of_month" binding:"omitempty,min=1,max=5"`
	IntervalWeeks *int    `json:"interval_weeks" binding:"omitempty,min=1"`
	StartDate     string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate       *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	IsActive      *bool   `json:"is_active"`
}

func (r *patternRequest) toModel() (*model.RecurrencePattern, error) {
	templateID, err := uuid.Parse(r.TemplateID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid template ID", err)
	}
	start, err := model.ParseDate(r.StartDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start_date", err)
	}

	p := &model.RecurrencePattern{
		TemplateID:    templateID,
		PatternType:   recurrence.PatternType(r.PatternType),
		DayOfWeek:     *r.DayOfWeek,
		WeekOfMonth:   r.WeekOfMonth,
		IntervalWeeks: r.IntervalWeeks,
		StartDate:     start,
		IsActive:      true,
	}
	if r.EndDate != nil {
		end, err := model.ParseDate(*r.EndDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid end_date", err)
		}
		p.EndDate = &end
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p, nil
}

type patternResponse struct {
	ID                uuid.UUID              `json:"id"`
	TemplateID        uuid.UUID              `json:"template_id"`
	PatternType       recurrence.PatternType `json:"pattern_type"`
	DayOfWeek         int                    `json:"day_of_week"`
	WeekOfMonth       *int                   `json:"week_of_month,omitempty"`
	IntervalWeeks     *int                   `json:"interval_weeks,omitempty"`
	StartDate         string                 `json:"start_date"`
	EndDate           *string                `json:"end_date,omitempty"`
	LastGeneratedDate *string                `json:"last_generated_date,omitempty"`
	IsActive          bool                   `json:"is_active"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func newPatternResponse(p *model.RecurrencePattern) patternResponse {
	return patternResponse{
		ID:                p.ID,
		TemplateID:        p.TemplateID,
		PatternType:       p.PatternType,
		DayOfWeek:         p.DayOfWeek,
		WeekOfMonth:       p.WeekOfMonth,
		IntervalWeeks:     p.IntervalWeeks,
		StartDate:         model.FormatDate(p.StartDate),
		EndDate:           formatOptional(p.EndDate),
		LastGeneratedDate: formatOptional(p.LastGeneratedDate),
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := model.FormatDate(*t)
	return &s
}

func (h *Handler) CreatePattern(c *gin.Context) {
	var req patternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	p, err := req.toModel()
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if err := h.service.CreatePattern(c.Request.Context(), p); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(newPatternResponse(p)))
}

func (h *Handler) GetPattern(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.GetPattern(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(newPatternResponse(p)))
}

func (h *Handler) ListPatterns(c *gin.Context) {
	patterns, err := h.service.ListPatterns(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	out := make([]patternResponse, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, newPatternResponse(p))
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) UpdatePattern(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req patternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	p, err := req.toModel()
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	p.ID = id
	if err := h.service.UpdatePattern(c.Request.Context(), p); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(newPatternResponse(p)))
}

// PreviewPattern defaults to a window of defaultPreviewDays from today.
func (h *Handler) PreviewPattern(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	from := recurrence.Today(time.Now(), h.location)
	if v := c.Query("from"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from date, expected YYYY-MM-DD"))
			return
		}
		from = d
	}
	to := from.AddDate(0, 0, defaultPreviewDays)
	if v := c.Query("to"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to date, expected YYYY-MM-DD"))
			return
		}
		to = d
	}

	dates, err := h.service.PreviewPattern(c.Request.Context(), id, from, to)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, model.FormatDate(d))
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"from":  model.FormatDate(from),
		"to":    model.FormatDate(to),
		"dates": out,
	}))
}

func (h *Handler) GeneratePattern(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.generator.GeneratePattern(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

type templateRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	DefaultTime string  `json:"default_time" binding:"required,clocktime"`
	Location    *string `json:"location" binding:"omitempty,max=200"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	t := &model.ServiceTemplate{
		Name:        req.Name,
		DefaultTime: req.DefaultTime,
		Location:    req.Location,
		IsActive:    true,
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := h.service.CreateTemplate(c.Request.Context(), t); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(t))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(templates))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pattern ID"))
		return uuid.Nil, false
	}
	return id, true
}
