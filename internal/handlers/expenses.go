package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trackex/internal/apperr"
	"trackex/internal/ledger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Categories lists the category catalog.
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Ledger.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cats)
}

func filtersFromQuery(r *http.Request) ledger.Filters {
	q := r.URL.Query()
	return ledger.Filters{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  q.Get("category"),
	}
}

// ListExpenses returns the caller's entries, most recent first.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.Query(r.Context(), userID(r), filtersFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// CreateExpense records an expense for the caller.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ledger.RecordRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.Ledger.Record(r.Context(), userID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, e)
}

// RecentExpenses returns the latest entries; ?limit= defaults to three.
func (h *Handlers) RecentExpenses(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.Ledger.Recent(r.Context(), userID(r), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ExportExpenses downloads the filtered entries as a spreadsheet.
func (h *Handlers) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Ledger.Export(r.Context(), userID(r), filtersFromQuery(r), &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// DeleteExpense deletes one of the caller's entries.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, apperr.Invalid("id", "must be a positive integer"))
		return
	}
	if err := h.Ledger.Delete(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func monthFromQuery(r *http.Request) (ledger.Month, error) {
	month, err := queryInt(r, "month")
	if err != nil {
		return ledger.Month{}, err
	}
	year, err := queryInt(r, "year")
	if err != nil {
		return ledger.Month{}, err
	}
	return ledger.Month{Year: year, Month: month}, nil
}

// MonthlyTotal sums the caller's entries of a month, the current one by default.
func (h *Handlers) MonthlyTotal(w http.ResponseWriter, r *http.Request) {
	m, err := monthFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.Ledger.MonthlyTotal(r.Context(), userID(r), m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"month": m.Month, "year": m.Year, "total": total})
}
