package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/actionsum/lastapp/internal/eligibility"
	"github.com/actionsum/lastapp/internal/models"
	"github.com/actionsum/lastapp/internal/reporter"
	"github.com/actionsum/lastapp/internal/service"
	"github.com/actionsum/lastapp/pkg/activation"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit  = 50
	defaultPeriod = "week"
)

// Backend is the running daemon
type Backend interface {
	Status() service.Status
	RequestSwitch(ctx context.Context) (eligibility.Verdict, error)
}

// Store answers the read-only history queries
type Store interface {
	RecentEvents(limit int) ([]*models.ActivationEvent, error)
	RecentAttempts(limit int) ([]*models.SwitchAttempt, error)
	AppActivationCounts(since time.Time) ([]models.AppCount, error)
}

// SwitchResponse is the body of POST /api/switch
type SwitchResponse struct {
	Allowed bool               `json:"allowed"`
	Reason  eligibility.Reason `json:"reason"`
	Error   string             `json:"error,omitempty"`
}

type Handler struct {
	Backend Backend
	Store   Store
	Metrics http.Handler
}

// Register mounts every route on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", h.ServeMetrics)

	api := r.Group("/api")
	api.GET("/status", h.Status)
	api.POST("/switch", h.Switch)
	api.GET("/events", h.Events)
	api.GET("/attempts", h.Attempts)
	api.GET("/apps", h.Apps)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Backend.Status())
}

// Switch is the inbound trigger. A denied verdict is a normal 200 response;
// only a failed activation is reported as an upstream error.
func (h *Handler) Switch(c *gin.Context) {
	verdict, err := h.Backend.RequestSwitch(c.Request.Context())
	resp := SwitchResponse{Allowed: verdict.Allowed, Reason: verdict.Reason}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrNotRunning):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		var activationErr *activation.ActivationError
		if !errors.As(err, &activationErr) && c.Request.Context().Err() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		resp.Error = err.Error()
		c.JSON(http.StatusBadGateway, resp)
	}
}

func (h *Handler) Events(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	events, err := h.Store.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) Attempts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	attempts, err := h.Store.RecentAttempts(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// Apps reports activation counts per application for ?period=day|week|month
func (h *Handler) Apps(c *gin.Context) {
	period := c.DefaultQuery("period", defaultPeriod)
	if _, err := reporter.GetPeriod(period, time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := reporter.New(h.Store).GenerateReport(period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ServeMetrics(c *gin.Context) {
	if h.Metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.Metrics.ServeHTTP(c.Writer, c.Request)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
