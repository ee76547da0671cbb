package handlers

import (
	"net/http"
	"strconv"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/services/accounting"
)

// triggerSync runs one accounting catalog sync and returns its record.
// Office only.
func (r *Router) triggerSync(w http.ResponseWriter, req *http.Request) {
	c := caller(req)
	if !c.Role.CanManageCatalog() {
		r.respondError(w, req, apperr.Permission("role %s may not trigger a catalog sync", c.Role))
		return
	}
	if r.Sync == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "accounting gateway is not configured"})
		return
	}

	run, err := r.Sync.RunOnce(req.Context(), accounting.TriggerManual)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	status := http.StatusOK
	if run.Status == accounting.StatusError {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, run)
}

// syncHistory lists recent sync runs, ?limit= caps the count
func (r *Router) syncHistory(w http.ResponseWriter, req *http.Request) {
	if r.Sync == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "accounting gateway is not configured"})
		return
	}
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			r.respondError(w, req, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := r.Sync.History(req.Context(), limit)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, runs)
}
