package adminapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/arbengine/internal/config"
	"github.com/evetabi/arbengine/internal/cooldown"
	"github.com/evetabi/arbengine/internal/exposure"
	"github.com/evetabi/arbengine/internal/kvstore"
)

type handler struct {
	cooldown *cooldown.Registry
	exposure *exposure.Recorder
	store    kvstore.Store
	cfg      *config.Config
}

func newHandler(deps Deps) *handler {
	return &handler{
		cooldown: deps.Cooldown,
		exposure: deps.Exposure,
		store:    deps.Store,
		cfg:      deps.Cfg,
	}
}

// Health godoc
// GET /admin/health
func (h *handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusServiceUnavailable, "ERR_STORE_DOWN", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}

// Cooldowns godoc
// GET /admin/cooldowns
func (h *handler) Cooldowns(c *gin.Context) {
	now := time.Now()
	entries := h.cooldown.Snapshot(now)

	type view struct {
		Key              string  `json:"key"`
		Tenant           string  `json:"tenant"`
		Provider         string  `json:"provider"`
		Account          string  `json:"account"`
		AcquiredAt       string  `json:"acquired_at"`
		RemainingSeconds float64 `json:"remaining_seconds"`
	}

	views := make([]view, 0, len(entries))
	for _, e := range entries {
		views = append(views, view{
			Key:              e.Key(),
			Tenant:           e.Tenant,
			Provider:         e.Provider,
			Account:          e.Account,
			AcquiredAt:       e.AcquiredAt.UTC().Format(time.RFC3339),
			RemainingSeconds: e.ExpiresAt.Sub(now).Seconds(),
		})
	}

	respondSuccess(c, http.StatusOK, gin.H{"active": len(views), "cooldowns": views})
}

// Exposures godoc
// GET /admin/exposures?page=1&limit=50
func (h *handler) Exposures(c *gin.Context) {
	all := h.exposure.List()
	page, limit := adminPagination(c)

	// Most recent first for the operator view.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	respondList(c, all[start:end], len(all), page, limit)
}
