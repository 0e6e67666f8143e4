// internal/httpapi/orders.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"gasexpress/internal/account"
	"gasexpress/internal/guard"
	"gasexpress/internal/orders"
)

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Orders.List(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, emptyIfNil(all))
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	// Orders are always placed for the session's own account.
	acct := guard.AccountFrom(r.Context())
	req.CustomerID = acct.ID
	if req.CustomerName == "" {
		req.CustomerName = acct.Name
	}
	if req.CustomerPhone == "" {
		req.CustomerPhone = acct.Phone
	}

	order, err := h.svc.Orders.Create(r.Context(), req)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusCreated, order)
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	acct := guard.AccountFrom(r.Context())
	mine, err := h.svc.Orders.ListByCustomer(r.Context(), acct.ID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, emptyIfNil(mine))
}

func (h *Handler) handleAssignedOrders(w http.ResponseWriter, r *http.Request) {
	acct := guard.AccountFrom(r.Context())
	assigned, err := h.svc.Orders.ListByCourier(r.Context(), acct.ID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, emptyIfNil(assigned))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	// Customers only see their own orders; couriers only their assignments.
	acct := guard.AccountFrom(r.Context())
	switch acct.Role {
	case account.RoleCustomer:
		if order.CustomerID != acct.ID {
			respondError(w, http.StatusNotFound, orders.ErrNotFound)
			return
		}
	case account.RoleCourier:
		if order.CourierID != acct.ID {
			respondError(w, http.StatusNotFound, orders.ErrNotFound)
			return
		}
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"estado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.svc.Orders.UpdateStatus(r.Context(), urlParam(r, "id"), req.Status, actorID(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) handleAssignCourier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourierID string `json:"repartidorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.svc.Orders.AssignCourier(r.Context(), urlParam(r, "id"), req.CourierID, actorID(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, order)
}
