package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
)

type budgetRequest struct {
	Category string           `json:"category_name"`
	Ceiling  *decimal.Decimal `json:"budget"`
}

func (h *Handlers) decodeBudget(w http.ResponseWriter, r *http.Request) (*budgetRequest, error) {
	var req budgetRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	if req.Ceiling == nil {
		return nil, apperr.Required("budget")
	}
	return &req, nil
}

// GetBudgets returns the ceiling of ?category_name=, or every budget of the
// caller when no category is given.
func (h *Handlers) GetBudgets(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category_name")
	if category == "" {
		list, err := h.Budgets.List(r.Context(), userID(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, list)
		return
	}

	b, err := h.Budgets.Get(r.Context(), userID(r), category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

// InsertBudget creates a ceiling; an existing one is a conflict.
func (h *Handlers) InsertBudget(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBudget(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Budgets.Insert(r.Context(), userID(r), req.Category, *req.Ceiling); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, messageBody{"Budget inserted successfully"})
}

// UpdateBudget changes an existing ceiling.
func (h *Handlers) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBudget(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Budgets.Update(r.Context(), userID(r), req.Category, *req.Ceiling); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageBody{"Budget updated successfully"})
}

// BudgetExpense lists this month's entries of ?category_name=.
func (h *Handlers) BudgetExpense(w http.ResponseWriter, r *http.Request) {
	out, err := h.Budgets.CurrentMonthExpenses(r.Context(), userID(r), r.URL.Query().Get("category_name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// BudgetStatus compares the ceiling of ?category_name= with this month's spending.
func (h *Handlers) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Budgets.Status(r.Context(), userID(r), r.URL.Query().Get("category_name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}
