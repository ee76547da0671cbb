package handlers

import (
	"net/http"

	"github.com/xelth-com/mprgo/internal/websocket"
)

// serveWs upgrades to the visit event stream for the caller
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.Hub, caller(req), w, req)
}
