package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swarmlens/backend/internal/domain/stage"
	"github.com/swarmlens/backend/internal/domain/swarm"
	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
	"github.com/swarmlens/backend/internal/shared/types"
)

// Handlers holds the HTTP handler dependencies
type Handlers struct {
	store   *swarm.Store
	queue   *stage.Queue
	metrics *monitoring.Metrics
}

// NewHandlers creates the HTTP handler set
func NewHandlers(store *swarm.Store, queue *stage.Queue, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		store:   store,
		queue:   queue,
		metrics: metrics,
	}
}

// Root returns service identification
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "swarmlens-backend",
		"status":  "running",
	})
}

// Health returns liveness plus headline numbers for dashboards
func (h *Handlers) Health(c *gin.Context) {
	stats := h.store.Stats()
	status := h.queue.Status()

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"agents":         stats.TotalAgents,
		"agents_working": stats.WorkingAgents,
		"stage_pending":  status.Length,
		"stage_running":  status.Running,
	})
}

// ListAgents returns all mirrored agents ordered by ID
func (h *Handlers) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"agents": h.store.Snapshot(),
	})
}

// GetAgent returns one agent by ID
func (h *Handlers) GetAgent(c *gin.Context) {
	agent, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "agent not found",
		})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// SwarmStats returns agent store statistics
func (h *Handlers) SwarmStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}

// StageStatus returns the animation queue's diagnostic snapshot. Operators
// poll it to detect a stuck queue (running stuck true, current unchanged)
// before deciding to force-stop.
func (h *Handlers) StageStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Status())
}

// StageClear empties pending intents without touching an in-flight animation
func (h *Handlers) StageClear(c *gin.Context) {
	h.queue.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StageForceStop is the operator recovery path for a stuck pipeline
func (h *Handlers) StageForceStop(c *gin.Context) {
	h.queue.ForceStop()
	if h.metrics != nil {
		h.metrics.RecordForceStop()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStageConfig returns the current queue timing and bound
func (h *Handlers) GetStageConfig(c *gin.Context) {
	cfg := h.queue.Config()
	c.JSON(http.StatusOK, types.StageConfig{
		MinDisplayMs:      int(cfg.MinDisplay / time.Millisecond),
		TransitionDelayMs: int(cfg.TransitionDelay / time.Millisecond),
		MaxPending:        cfg.MaxPending,
	})
}

// UpdateStageConfig overrides queue timing at runtime. Omitted fields keep
// their current value. Nothing is persisted.
func (h *Handlers) UpdateStageConfig(c *gin.Context) {
	var req struct {
		MinDisplayMs      *int `json:"min_display_ms"`
		TransitionDelayMs *int `json:"transition_delay_ms"`
		MaxPending        *int `json:"max_pending"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if req.MinDisplayMs != nil || req.TransitionDelayMs != nil {
		cfg := h.queue.Config()
		minDisplay := cfg.MinDisplay
		transitionDelay := cfg.TransitionDelay
		if req.MinDisplayMs != nil {
			minDisplay = time.Duration(*req.MinDisplayMs) * time.Millisecond
		}
		if req.TransitionDelayMs != nil {
			transitionDelay = time.Duration(*req.TransitionDelayMs) * time.Millisecond
		}
		h.queue.SetTiming(minDisplay, transitionDelay)
	}
	if req.MaxPending != nil {
		h.queue.SetMaxPending(*req.MaxPending)
	}

	h.GetStageConfig(c)
}

// MetricsJSON returns the metrics snapshot for non-Prometheus consumers
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
