// internal/httpapi/auth.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"gasexpress/internal/guard"
	"gasexpress/internal/session"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result := h.svc.Sessions.Login(r.Context(), req.Email, req.Password)
	if !result.Success {
		respond(w, http.StatusUnauthorized, result)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req session.RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result := h.svc.Sessions.Register(r.Context(), req)
	if !result.Success {
		respond(w, http.StatusConflict, result)
		return
	}
	respond(w, http.StatusCreated, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.svc.Sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Sessions.Refresh(r.Context()) {
		respond(w, http.StatusUnauthorized, map[string]bool{"refreshed": false})
		return
	}
	respond(w, http.StatusOK, map[string]bool{"refreshed": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	acct := guard.AccountFrom(r.Context())
	respond(w, http.StatusOK, acct.Sanitized())
}
