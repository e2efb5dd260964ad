package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trackex/internal/apperr"
	"trackex/internal/budget"
	"trackex/internal/forecast"
	"trackex/internal/ledger"
	"trackex/internal/payments"
	"trackex/internal/registry"
	"trackex/internal/session"
	"trackex/internal/transfer"
	"trackex/internal/users"
)

// Context key type to avoid collisions.
type contextKey string

// UserIDContextKey is the context key for the authenticated user id.
const UserIDContextKey contextKey = "user_id"

const maxBodyBytes = 1 << 20

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the domain services the handlers expose.
// Advisor may be nil when no forecast service is configured.
type Services struct {
	Credentials *session.Credentials
	Users       *users.Service
	Registry    *registry.Registry
	Transfers   *transfer.Engine
	Ledger      *ledger.Service
	Budgets     *budget.Tracker
	Payments    *payments.Service
	Advisor     *forecast.Advisor
	Pinger      Pinger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Services
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s Services, logger *slog.Logger) *Handlers {
	return &Handlers{Services: s, logger: logger}
}

// Mount registers every route on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts/signup", h.Signup)
		r.Post("/accounts/login", h.Login)
		r.Post("/accounts/logout", h.Logout)
		r.Get("/accounts/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Post("/accounts/change-password", h.ChangePassword)

			r.Post("/account/link", h.LinkAccount)
			r.Get("/account", h.MaskedAccount)
			r.Post("/account/verify-pin", h.VerifyPIN)
			r.Post("/account/change-pin", h.ChangePIN)
			r.Get("/account/profile", h.Profile)

			r.Post("/transfers", h.Transfer)

			r.Get("/categories", h.Categories)
			r.Get("/expenses", h.ListExpenses)
			r.Post("/expenses", h.CreateExpense)
			r.Get("/expenses/recent", h.RecentExpenses)
			r.Get("/expenses/export", h.ExportExpenses)
			r.Get("/expenses/monthly-total", h.MonthlyTotal)
			r.Get("/expenses/statistics", h.Statistics)
			r.Delete("/expenses/{id}", h.DeleteExpense)

			r.Get("/budgets", h.GetBudgets)
			r.Post("/budgets", h.InsertBudget)
			r.Put("/budgets", h.UpdateBudget)
			r.Get("/budgets/expense", h.BudgetExpense)
			r.Get("/budgets/status", h.BudgetStatus)

			r.Post("/payments/orders", h.CreateOrder)
			r.Post("/payments/verify", h.VerifyPayment)
			r.Get("/payments", h.PaymentHistory)

			r.Post("/forecast", h.Forecast)
		})
	})
}

// UserIDFromContext retrieves the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDContextKey).(int64)
	return id, ok
}

// AuthMiddleware resolves the request token to a user id or answers 401.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.Credentials.Resolve(r.Context(), session.TokenFromRequest(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) int64 {
	id, _ := UserIDFromContext(r.Context())
	return id
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

// writeJSON sends v with status. The header is already written when encoding
// fails, so the failure can only be logged.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Int("status", status), slog.Any("error", err))
	}
}

// writeError maps err to its status. Causes of Fatal errors are logged and
// never sent to the client.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.Fatal {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	e := apperr.As(err)
	h.writeJSON(w, e.Kind.HTTPStatus(), errorBody{Error: e.Message, Code: e.Code, Field: e.Field})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is required")
		}
		return apperr.Invalid("body", "malformed JSON body")
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Invalid(name, "must be an integer")
	}
	return n, nil
}

// Health reports whether the store answers.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Pinger.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Signup registers a user.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.Users.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user": u})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for the user's bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout revokes the request token.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if token == "" {
		h.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if err := h.Users.Logout(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageBody{"Logged out successfully"})
}

// ChangePassword replaces the caller's password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req users.ChangePasswordRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Users.ChangePassword(r.Context(), userID(r), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageBody{"Password updated successfully"})
}
