package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ritmoapp/progress-engine/internal/adapters/handler/http/middleware"
	"github.com/ritmoapp/progress-engine/internal/core/domain"
	"github.com/ritmoapp/progress-engine/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type recurrencePayload struct {
	Frequency     string `json:"frequency"`
	HabitType     string `json:"habit_type"`
	ScheduledDays []int  `json:"scheduled_days"`
	IntervalDays  int    `json:"interval_days"`
	DailyTarget   int    `json:"daily_target"`
}

func (p *recurrencePayload) toDomain() domain.Recurrence {
	return domain.Recurrence{
		Frequency:     domain.Frequency(p.Frequency),
		HabitType:     domain.HabitType(p.HabitType),
		ScheduledDays: p.ScheduledDays,
		IntervalDays:  p.IntervalDays,
		DailyTarget:   p.DailyTarget,
	}
}

type createHabitRequest struct {
	Title        string             `json:"title" binding:"required"`
	Description  string             `json:"description"`
	Color        string             `json:"color"`
	Icon         string             `json:"icon"`
	ReminderTime string             `json:"reminder_time"`
	Recurrence   *recurrencePayload `json:"recurrence"`
}

type updateHabitRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Color        string             `json:"color"`
	Icon         string             `json:"icon"`
	ReminderTime string             `json:"reminder_time"`
	Recurrence   *recurrencePayload `json:"recurrence"`
	SortOrder    *int               `json:"sort_order"`
	Version      int                `json:"version"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
		habits.POST("/:id/archive", h.Archive)
		habits.POST("/:id/restore", h.Restore)
	}
}

func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateHabitInput{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		ReminderTime: req.ReminderTime,
	}
	if req.Recurrence != nil {
		input.Recurrence = req.Recurrence.toDomain()
	}

	habit, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, habit)
}

func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	lastSyncStr := c.Query("last_sync")
	var lastSync time.Time
	var err error

	if lastSyncStr != "" {
		lastSync, err = time.Parse(time.RFC3339, lastSyncStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_sync format, use RFC3339"})
			return
		}
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	id := c.Param("id")

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateHabitInput{
		ID:           id,
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		ReminderTime: req.ReminderTime,
		SortOrder:    req.SortOrder,
		Version:      req.Version,
	}
	if req.Recurrence != nil {
		rec := req.Recurrence.toDomain()
		input.Recurrence = &rec
	}

	habit, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrHabitConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "version conflict",
				"message": "Data has been modified elsewhere. Please sync.",
			})
			return
		}
		if errors.Is(err, domain.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		if errors.Is(err, domain.ErrHabitArchived) {
			c.JSON(http.StatusConflict, gin.H{"error": "habit is archived"})
			return
		}
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HabitHandler) Archive(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Archive(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, domain.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *HabitHandler) Restore(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Restore(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, domain.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusOK)
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrHabitTitleEmpty) ||
		errors.Is(err, domain.ErrHabitTitleTooLong) ||
		errors.Is(err, domain.ErrHabitDescTooLong) ||
		errors.Is(err, domain.ErrInvalidColor) ||
		errors.Is(err, domain.ErrInvalidReminder) ||
		errors.Is(err, domain.ErrInvalidFrequency) ||
		errors.Is(err, domain.ErrInvalidHabitType) ||
		errors.Is(err, domain.ErrInvalidWeekdays) ||
		errors.Is(err, domain.ErrInvalidInterval) ||
		errors.Is(err, domain.ErrInvalidTarget)
}
