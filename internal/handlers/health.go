package handlers

import (
	"net/http"

	"github.com/xelth-com/mprgo/internal/buildinfo"
)

type healthResponse struct {
	Status     string `json:"status"`
	Accounting bool   `json:"accounting"`
	buildinfo.Info
}

// healthCheck reports liveness, build metadata and whether catalog sync is on
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Accounting: r.Sync != nil,
		Info:       buildinfo.Current(),
	})
}
