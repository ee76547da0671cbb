package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/middleware"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/services/accounting"
	"github.com/xelth-com/mprgo/internal/services/catalog"
	"github.com/xelth-com/mprgo/internal/services/checklist"
	"github.com/xelth-com/mprgo/internal/services/photos"
	"github.com/xelth-com/mprgo/internal/services/visits"
	"github.com/xelth-com/mprgo/internal/websocket"
)

// Deps are the services the HTTP layer dispatches to. Sync may be nil when
// the accounting gateway is not configured.
type Deps struct {
	Store     repository.Store
	Resolver  *identity.Resolver
	Visits    *visits.Service
	Checklist *checklist.Service
	Photos    *photos.Service
	Catalog   *catalog.Service
	Sync      *accounting.SyncService
	Hub       *websocket.Hub
	JWTSecret string
	Log       *zap.Logger
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	Deps
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		Deps:   d,
	}
	r.Use(middleware.RequestLogger(d.Log), middleware.Recoverer(d.Log))

	// Public routes
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/auth/login", r.login).Methods("POST")
	r.HandleFunc("/auth/refresh", r.refresh).Methods("POST")

	// Everything else needs a valid access token
	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(d.JWTSecret, d.Resolver, d.Log))

	api.HandleFunc("/auth/register", r.register).Methods("POST")
	api.HandleFunc("/auth/me", r.me).Methods("GET")

	api.HandleFunc("/visits", r.listVisits).Methods("GET")
	api.HandleFunc("/visits/{uuid}", r.getVisit).Methods("GET")
	api.HandleFunc("/visits/{uuid}", r.upsertVisit).Methods("PUT")
	api.HandleFunc("/visits/{uuid}", r.deleteVisit).Methods("DELETE")
	api.HandleFunc("/visits/{uuid}/sheet", r.visitSheet).Methods("GET")

	api.HandleFunc("/checklistsquestions", r.listQuestions).Methods("GET")
	api.HandleFunc("/checklistsquestions", r.upsertQuestion).Methods("PUT")
	api.HandleFunc("/checklistsquestions/{uuid}", r.getQuestion).Methods("GET")
	api.HandleFunc("/checklistsquestions/{uuid}", r.upsertQuestion).Methods("PUT")
	api.HandleFunc("/checklistsquestions/{uuid}", r.deleteQuestion).Methods("DELETE")
	api.HandleFunc("/checklistanswers", r.submitAnswers).Methods("POST")
	api.HandleFunc("/checklistanswers", r.queryAnswers).Methods("GET")

	api.HandleFunc("/photos/{visitUuid}", r.uploadPhoto).Methods("POST")
	api.HandleFunc("/photos/{visitUuid}", r.listPhotos).Methods("GET")
	api.HandleFunc("/photos/{visitUuid}/{photoUuid}", r.downloadPhoto).Methods("GET")

	api.HandleFunc("/clients", r.listClients).Methods("GET")
	api.HandleFunc("/clients/{inn}", r.getClient).Methods("GET")
	api.HandleFunc("/clients/{inn}", r.upsertClient).Methods("PUT")
	api.HandleFunc("/clients/{inn}", r.deleteClient).Methods("DELETE")
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products/{item}", r.getProduct).Methods("GET")
	api.HandleFunc("/products/{item}", r.upsertProduct).Methods("PUT")
	api.HandleFunc("/products/{item}", r.deleteProduct).Methods("DELETE")
	api.HandleFunc("/prices", r.listPrices).Methods("GET")
	api.HandleFunc("/prices", r.replacePrices).Methods("PUT")

	api.HandleFunc("/sync/accounting", r.triggerSync).Methods("POST")
	api.HandleFunc("/sync/accounting", r.syncHistory).Methods("GET")

	api.HandleFunc("/tasks", r.notImplemented)
	api.PathPrefix("/tasks/").HandlerFunc(r.notImplemented)

	api.HandleFunc("/ws", r.serveWs).Methods("GET")

	return r
}

// caller returns the identity the auth middleware stored
func caller(req *http.Request) identity.Caller {
	c, _ := identity.CallerFrom(req.Context())
	return c
}

func (r *Router) notImplemented(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusNotImplemented, map[string]string{"error": "not implemented"})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondList sends 204 for an empty result
func respondList[T any](w http.ResponseWriter, items []T) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// respondSaved sends 201 when the upsert created the record
func respondSaved(w http.ResponseWriter, created bool, data interface{}) {
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, data)
}

// respondError sends an error response. Internal errors are logged and
// their details withheld.
func (r *Router) respondError(w http.ResponseWriter, req *http.Request, err error) {
	httpErr := apperr.ToHTTPError(err)
	status := httperror.GetStatusCode(httpErr)
	if status >= http.StatusInternalServerError {
		r.Log.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", req.Header.Get(middleware.RequestIDHeader)),
			zap.Error(err),
		)
	}
	respondJSON(w, status, map[string]string{
		"error": apperr.PublicMessage(err),
	})
}
