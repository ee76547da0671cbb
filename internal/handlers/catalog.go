package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/mprgo/internal/services/catalog"
	"github.com/xelth-com/mprgo/internal/utils"
)

// --- clients ---

func (r *Router) listClients(w http.ResponseWriter, req *http.Request) {
	q, err := catalog.ParseClientQuery(req.URL.Query())
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	clients, err := r.Catalog.ListClients(req.Context(), caller(req), q)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, clients)
}

func (r *Router) getClient(w http.ResponseWriter, req *http.Request) {
	client, err := r.Catalog.GetClient(req.Context(), caller(req), mux.Vars(req)["inn"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (r *Router) upsertClient(w http.ResponseWriter, req *http.Request) {
	var payload catalog.ClientPayload
	if err := utils.DecodeJSON(req.Body, &payload); err != nil {
		r.respondError(w, req, err)
		return
	}
	client, created, err := r.Catalog.UpsertClient(req.Context(), caller(req), mux.Vars(req)["inn"], payload)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondSaved(w, created, client)
}

func (r *Router) deleteClient(w http.ResponseWriter, req *http.Request) {
	if err := r.Catalog.DeleteClient(req.Context(), caller(req), mux.Vars(req)["inn"]); err != nil {
		r.respondError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- products ---

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	q, err := catalog.ParseProductQuery(req.URL.Query())
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	products, err := r.Catalog.ListProducts(req.Context(), q)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, products)
}

func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	product, err := r.Catalog.GetProduct(req.Context(), mux.Vars(req)["item"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (r *Router) upsertProduct(w http.ResponseWriter, req *http.Request) {
	var payload catalog.ProductPayload
	if err := utils.DecodeJSON(req.Body, &payload); err != nil {
		r.respondError(w, req, err)
		return
	}
	product, created, err := r.Catalog.UpsertProduct(req.Context(), caller(req), mux.Vars(req)["item"], payload)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondSaved(w, created, product)
}

func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	if err := r.Catalog.DeleteProduct(req.Context(), caller(req), mux.Vars(req)["item"]); err != nil {
		r.respondError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- prices ---

func (r *Router) listPrices(w http.ResponseWriter, req *http.Request) {
	prices, err := r.Catalog.ListPrices(req.Context(), catalog.ParsePriceQuery(req.URL.Query()))
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, prices)
}

// replacePrices upserts a batch of price entries in one transaction
func (r *Router) replacePrices(w http.ResponseWriter, req *http.Request) {
	var entries []catalog.PricePayload
	if err := utils.DecodeJSON(req.Body, &entries); err != nil {
		r.respondError(w, req, err)
		return
	}
	n, err := r.Catalog.ReplacePrices(req.Context(), caller(req), entries)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}
