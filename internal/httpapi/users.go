// internal/httpapi/users.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"gasexpress/internal/account"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Accounts.List(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	sanitized := make([]account.Account, 0, len(accounts))
	for _, acct := range accounts {
		sanitized = append(sanitized, acct.Sanitized())
	}
	respond(w, http.StatusOK, sanitized)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req account.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	acct, err := h.svc.Accounts.Create(r.Context(), req)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusCreated, acct.Sanitized())
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.Accounts.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, acct.Sanitized())
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req account.Changes
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	acct, err := h.svc.Accounts.Update(r.Context(), urlParam(r, "id"), req, actorID(r))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, acct.Sanitized())
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.Delete(r.Context(), urlParam(r, "id"), actorID(r)); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
