// internal/httpapi/activity.go
package httpapi

import (
	"net/http"
	"strconv"
)

const defaultActivityLimit = 100

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}

	entries := h.svc.Trail.Recent(r.Context(), limit)
	respond(w, http.StatusOK, emptyIfNil(entries))
}
