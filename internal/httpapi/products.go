// internal/httpapi/products.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"gasexpress/internal/catalog"
	"gasexpress/internal/guard"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.List(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, emptyIfNil(products))
}

func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, emptyIfNil(products))
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Catalog.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.svc.Catalog.Add(r.Context(), req, actorID(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.Changes
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.svc.Catalog.Update(r.Context(), urlParam(r, "id"), req, actorID(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.Delete(r.Context(), urlParam(r, "id"), actorID(r)); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actorID resolves the audit actor from the guarded request.
func actorID(r *http.Request) string {
	if acct := guard.AccountFrom(r.Context()); acct != nil {
		return acct.ID
	}
	return ""
}

// emptyIfNil keeps list responses as [] instead of null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
