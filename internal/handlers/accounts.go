package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"trackex/internal/models"
	"trackex/internal/registry"
	"trackex/internal/transfer"
)

type linkRequest struct {
	models.AccountIdentity
	PIN string `json:"pin"`
}

// LinkAccount binds the caller to a registry account behind a PIN.
func (h *Handlers) LinkAccount(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Registry.LinkAccount(r.Context(), userID(r), req.AccountIdentity, req.PIN); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageBody{"Bank account linked successfully"})
}

// MaskedAccount shows the linked account number with all but four digits hidden.
func (h *Handlers) MaskedAccount(w http.ResponseWriter, r *http.Request) {
	view, err := h.Registry.Masked(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// VerifyPIN discloses the balance once the PIN matches.
func (h *Handlers) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	balance, err := h.Registry.VerifyPIN(r.Context(), userID(r), req.PIN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// ChangePIN replaces the link PIN.
func (h *Handlers) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req registry.ChangePINRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Registry.ChangePIN(r.Context(), userID(r), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageBody{"PIN updated successfully"})
}

// Profile returns the linked account's identity fields.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Registry.Profile(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

type transferRequest struct {
	models.RecipientIdentity
	Amount decimal.Decimal `json:"amount"`
	PIN    string          `json:"pin"`
}

// Transfer sends money from the caller's linked account.
func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.Transfers.Transfer(r.Context(), userID(r), transfer.Request{
		Recipient: req.RecipientIdentity,
		Amount:    req.Amount,
		PIN:       req.PIN,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}
