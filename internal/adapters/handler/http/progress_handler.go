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

// ProgressHandler exposes the completion surface of a habit: tap, undo,
// today's state and the event history.
type ProgressHandler struct {
	svc *services.ProgressService
}

func NewProgressHandler(svc *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		svc: svc,
	}
}

type progressRequest struct {
	// At lets offline clients replay a tap at the moment it happened.
	// Empty means "now" on the server clock.
	At string `json:"at"`
}

func (h *ProgressHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("/:id/progress", h.Increment)
		habits.POST("/:id/progress/undo", h.Undo)
		habits.GET("/:id/today", h.Today)
		habits.GET("/:id/history", h.History)
	}
}

func parseAt(c *gin.Context) (time.Time, bool) {
	var req progressRequest

	// The body is optional; a bare POST means "now".
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}

	if req.At == "" {
		return time.Now(), true
	}

	at, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid at format, use RFC3339"})
		return time.Time{}, false
	}
	return at, true
}

func (h *ProgressHandler) Increment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	at, ok := parseAt(c)
	if !ok {
		return
	}

	habit, err := h.svc.Increment(c.Request.Context(), c.Param("id"), userID, at)
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *ProgressHandler) Undo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	at, ok := parseAt(c)
	if !ok {
		return
	}

	habit, err := h.svc.Undo(c.Request.Context(), c.Param("id"), userID, at)
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *ProgressHandler) Today(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	view, err := h.svc.Today(c.Request.Context(), c.Param("id"), userID, time.Now())
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ProgressHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	var err error
	if v := c.Query("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, use RFC3339"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, use RFC3339"})
			return
		}
	}

	events, err := h.svc.History(c.Request.Context(), c.Param("id"), userID, from, to)
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *ProgressHandler) writeProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
	case errors.Is(err, domain.ErrHabitArchived):
		c.JSON(http.StatusConflict, gin.H{"error": "habit is archived"})
	case errors.Is(err, domain.ErrHabitConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
