package handlers

import (
	"net/http"

	"trackex/internal/forecast"
	"trackex/internal/payments"
)

// CreateOrder opens a gateway checkout for the caller.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req payments.OrderRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.Payments.CreateOrder(r.Context(), userID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// VerifyPayment checks a checkout result and records it on success.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req payments.VerifyRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Payments.Verify(r.Context(), userID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// PaymentHistory lists the caller's payments.
func (h *Handlers) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.Payments.History(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// Forecast recommends tickers for an investment amount.
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	if h.Advisor == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "forecast service is not configured", Code: "forecast_unavailable"})
		return
	}
	var req forecast.Request
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Advisor.Recommend(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}
