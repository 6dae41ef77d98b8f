package cron

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/church-api/internal/service/followup"
	"github.com/jwalitptl/church-api/internal/service/reminder"
	"github.com/jwalitptl/church-api/internal/service/schedule"
	"github.com/jwalitptl/church-api/pkg/logger"
)

type Generator interface {
	GenerateAll(ctx context.Context) (*schedule.RunResult, error)
}

type ReminderScanner interface {
	Scan(ctx context.Context) (*reminder.Result, error)
}

type FollowupScanner interface {
	Scan(ctx context.Context) (*followup.Result, error)
}

// Handler exposes the daily jobs to an external scheduler. The routes are
// expected to sit behind the cron secret middleware.
type Handler struct {
	generator Generator
	reminders ReminderScanner
	followups FollowupScanner
	logger    *logger.Logger
}

func NewHandler(generator Generator, reminders ReminderScanner, followups FollowupScanner, log *logger.Logger) *Handler {
	return &Handler{
		generator: generator,
		reminders: reminders,
		followups: followups,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/generate-services", h.GenerateServices)
	r.GET("/duty-reminders", h.DutyReminders)
	r.GET("/followup-reminders", h.FollowupReminders)
}

func (h *Handler) GenerateServices(c *gin.Context) {
	result, err := h.generator.GenerateAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "service generation failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) DutyReminders(c *gin.Context) {
	result, err := h.reminders.Scan(c.Request.Context())
	if err != nil {
		h.fail(c, err, "duty reminder scan failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) FollowupReminders(c *gin.Context) {
	result, err := h.followups.Scan(c.Request.Context())
	if err != nil {
		h.fail(c, err, "follow-up scan failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	h.logger.Error(err, msg, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
