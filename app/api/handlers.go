package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/wiki-watch/app/state"
	"github.com/lysyi3m/wiki-watch/app/tasks"
)

func NewHandler(stateStore *state.Store, runner TriggerInterface, monitoredPages []string, version string) *Handler {
	return &Handler{
		stateStore:     stateStore,
		runner:         runner,
		monitoredPages: monitoredPages,
		version:        version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":       time.Now().In(time.Local).Format(time.RFC3339),
		"monitored_pages": len(h.monitoredPages),
	}

	st := h.stateStore.Load()
	health["seen_entries"] = len(st.Seen)
	health["auto_tracked_pages"] = len(st.DynamicMonitoredPages)
	if st.UpdatedAt != "" {
		health["state_updated_at"] = st.UpdatedAt
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	var stats tasks.Stats
	if h.runner != nil {
		stats = h.runner.GetStats()
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIGetState(c *gin.Context) {
	st := h.stateStore.Load()

	autoTracked := make([]string, 0, len(st.DynamicMonitoredPages))
	for name := range st.DynamicMonitoredPages {
		autoTracked = append(autoTracked, name)
	}
	sort.Strings(autoTracked)

	c.JSON(http.StatusOK, map[string]interface{}{
		"updated_at":         st.UpdatedAt,
		"seen_entries":       len(st.Seen),
		"content_hashes":     len(st.ContentHashes),
		"monitored_pages":    h.monitoredPages,
		"auto_tracked_pages": autoTracked,
	})
}

func (h *Handler) APIRunCycle(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Runner not available"})
		return
	}

	if !h.runner.TriggerImmediate() {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "A cycle is already pending",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Cycle triggered",
	})
}
