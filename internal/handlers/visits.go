package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/services/printer"
	"github.com/xelth-com/mprgo/internal/services/visits"
	"github.com/xelth-com/mprgo/internal/utils"
)

// listVisits returns the visits matching the query filters
func (r *Router) listVisits(w http.ResponseWriter, req *http.Request) {
	q, err := visits.ParseListQuery(req.URL.Query())
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	found, err := r.Visits.List(req.Context(), caller(req), q)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, found)
}

func (r *Router) getVisit(w http.ResponseWriter, req *http.Request) {
	view, err := r.Visits.Get(req.Context(), caller(req), mux.Vars(req)["uuid"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// upsertVisit creates or merges a visit with its order lines
func (r *Router) upsertVisit(w http.ResponseWriter, req *http.Request) {
	var payload visits.Payload
	if err := utils.DecodeJSON(req.Body, &payload); err != nil {
		r.respondError(w, req, err)
		return
	}
	view, created, err := r.Visits.Upsert(req.Context(), caller(req), mux.Vars(req)["uuid"], payload)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondSaved(w, created, view)
}

func (r *Router) deleteVisit(w http.ResponseWriter, req *http.Request) {
	if err := r.Visits.Delete(req.Context(), caller(req), mux.Vars(req)["uuid"]); err != nil {
		r.respondError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visitSheet renders the printable PDF for one visit
func (r *Router) visitSheet(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	visit, err := r.Visits.Load(ctx, caller(req), mux.Vars(req)["uuid"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}

	data := printer.SheetData{Visit: visit, ProductNames: map[string]string{}}
	if client, err := r.Store.ClientByINN(ctx, visit.ClientINN); err == nil {
		data.ClientName = client.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		r.Log.Warn("sheet: client lookup failed", zap.String("inn", visit.ClientINN), zap.Error(err))
	}
	if manager, err := r.Store.UserByExternalKey(ctx, visit.ManagerID); err == nil {
		data.ManagerName = managerName(manager)
	}
	for _, line := range visit.Orders {
		if product, err := r.Store.ProductByItem(ctx, line.ProductItem); err == nil {
			data.ProductNames[line.ProductItem] = product.Name
		}
	}

	pdf, err := printer.GenerateVisitSheetPDF(data)
	if err != nil {
		r.respondError(w, req, apperr.Internal(err, "failed to render visit sheet"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=visit-%s.pdf", visit.UUID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func managerName(u *models.UserAuth) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
