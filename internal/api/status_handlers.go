package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statuswatch/statuswatch-core/internal/monitoring"
	"github.com/statuswatch/statuswatch-core/internal/stats"
)

// StatusHandlers serves the status endpoints backed by the derived-view
// readers, plus a manual probe trigger that persists its result. No
// auth/session middleware is wired here.
type StatusHandlers struct {
	views      *monitoring.Views
	repository *monitoring.Repository
	scheduler  *monitoring.Scheduler
	timeRange  stats.TimeRangeService
}

// NewStatusHandlers builds the thin read API's handler set.
func NewStatusHandlers(views *monitoring.Views, repository *monitoring.Repository, scheduler *monitoring.Scheduler) *StatusHandlers {
	return &StatusHandlers{
		views:      views,
		repository: repository,
		scheduler:  scheduler,
		timeRange:  stats.NewTimeRangeService(),
	}
}

// daysQuery resolves the window size for a view in days. The ?range=
// param (e.g. "7d", "3m", "1y") takes precedence when present; ?days=
// is the fallback for callers that want an exact count.
func (h *StatusHandlers) daysQuery(c *gin.Context, def int) int {
	if r := c.Query("range"); r != "" {
		d := h.timeRange.ParseRange(r)
		return int(d.Hours() / 24)
	}
	return intQuery(c, "days", def)
}

// Register wires the handlers onto router under /api/v1.
func (h *StatusHandlers) Register(router gin.IRouter) {
	group := router.Group("/api/v1")
	group.GET("/status", h.systemStatus)
	group.GET("/services/:id/uptime", h.uptime)
	group.GET("/services/:id/sla", h.sla)
	group.GET("/services/:id/trend", h.trend)
	group.GET("/services/:id/grid", h.grid)
	group.GET("/services/:id/history", h.history)
	group.POST("/services/:id/probe", h.manualProbe)
}

func (h *StatusHandlers) systemStatus(c *gin.Context) {
	snapshot, err := h.views.SystemStatusSnapshot(c.Request.Context())
	if err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	RespondSuccess(c, snapshot, "")
}

func (h *StatusHandlers) uptime(c *gin.Context) {
	id := c.Param("id")
	days := h.daysQuery(c, 30)

	pct, err := h.views.ServiceUptimePercentage(c.Request.Context(), id, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"service_id": id, "days": days, "uptime_percentage": pct}, "")
}

func (h *StatusHandlers) sla(c *gin.Context) {
	id := c.Param("id")
	days := h.daysQuery(c, 30)
	target := floatQuery(c, "target", 99.9)

	result, err := h.views.SLACompliance(c.Request.Context(), id, target, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, result, "")
}

func (h *StatusHandlers) trend(c *gin.Context) {
	id := c.Param("id")
	days := h.daysQuery(c, 30)

	result, err := h.views.Trend(c.Request.Context(), id, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, result, "")
}

func (h *StatusHandlers) grid(c *gin.Context) {
	id := c.Param("id")
	months := intQuery(c, "months", 3)

	result, err := h.views.MonthlyGrid(c.Request.Context(), id, months, time.Time{})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, result, "")
}

func (h *StatusHandlers) history(c *gin.Context) {
	id := c.Param("id")
	days := h.daysQuery(c, 7)

	result, err := h.views.GetServiceHistory(c.Request.Context(), id, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, result, "")
}

func (h *StatusHandlers) manualProbe(c *gin.Context) {
	id := c.Param("id")

	result, err := h.scheduler.TriggerManualProbe(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondSuccess(c, result, "")
}

func respondServiceError(c *gin.Context, err error) {
	RespondNotFound(c, err.Error())
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatQuery(c *gin.Context, key string, def float64) float64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
