// internal/httpapi/cart.go
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gasexpress/internal/cart"
)

type cartView struct {
	Lines []cart.Line `json:"lineas"`
	Total float64     `json:"total"`
}

func (h *Handler) cartResponse() cartView {
	lines := h.svc.Cart.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartView{Lines: lines, Total: h.svc.Cart.Total()}
}

func (h *Handler) handleCartLines(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cart.Line
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	h.svc.Cart.Add(req)
	respond(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) handleCartSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"cantidad"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Quantity may also travel as a query parameter.
		q, qErr := strconv.Atoi(r.URL.Query().Get("cantidad"))
		if qErr != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		req.Quantity = q
	}

	h.svc.Cart.SetQuantity(urlParam(r, "productId"), req.Quantity)
	respond(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	h.svc.Cart.Remove(urlParam(r, "productId"))
	respond(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) handleCartClear(w http.ResponseWriter, r *http.Request) {
	h.svc.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}
