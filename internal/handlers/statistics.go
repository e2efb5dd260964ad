package handlers

import (
	"net/http"
)

// Statistics breaks a month's spending down by category.
// Query params month and year default to the current civil month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	m, err := monthFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.Ledger.Statistics(r.Context(), userID(r), m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
