package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/sudhishp/kestrel/internal/runtime"
)

// GeneralController handles health checks and admin operations that span
// the whole collection rather than one named queue.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/admin/reload", c.handleReload)
	mux.HandleFunc("/v1/admin/snapshot", c.handleSnapshot)
}

// handleHealth returns 200 while the collection accepts operations, 503
// once shutdown has begun.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReload re-reads configuration from disk and applies it in place
// (ConfigurationBinder.reload): no queue is created or destroyed.
func (c *GeneralController) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req reloadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.rt.Reload(req.ConfigPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeNoContent(w)
}

// handleSnapshot reports aggregate counters across every live queue.
func (c *GeneralController) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := c.rt.Collection().Snapshot()
	writeJSON(w, snapshotResp{
		QueueCount:   snap.QueueCount,
		AliasCount:   snap.AliasCount,
		CurrentItems: snap.CurrentItems,
		CurrentBytes: snap.CurrentBytes,
		TotalItems:   snap.TotalItems,
		GetHits:      snap.GetHits,
		GetMisses:    snap.GetMisses,
	})
}
