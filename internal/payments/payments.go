package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
	"trackex/internal/models"
	"trackex/internal/money"
	"trackex/internal/storage"
)

const (
	// DefaultCategory is used for orders that name no category.
	DefaultCategory = "Other"
	// DefaultMethod is recorded when checkout reports no payment method.
	DefaultMethod = "Gateway"
)

// Store is the payment persistence the service needs.
type Store interface {
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByOrder(ctx context.Context, userID int64, orderID string) (*models.Payment, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
	MarkPaymentFailed(ctx context.Context, userID int64, orderID, paymentID string) error
	WithTx(ctx context.Context, fn func(*storage.Tx) error) error
}

// Service records gateway payments in the ledger once they are verified.
type Service struct {
	store    Store
	gateway  Gateway
	logger   *slog.Logger
	currency string
	keyID    string
	loc      *time.Location
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCurrency sets the order currency.
func WithCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

// WithKeyID sets the public key returned with new orders.
func WithKeyID(keyID string) Option {
	return func(s *Service) { s.keyID = keyID }
}

// WithLocation sets the civil timezone ledger entries are recorded in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(store Store, gateway Gateway, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		gateway:  gateway,
		logger:   logger,
		currency: "INR",
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OrderRequest starts a gateway checkout.
type OrderRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

// Order is what a checkout client needs to open the gateway widget.
type Order struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id,omitempty"`
}

// CreateOrder opens a gateway order and stores it as initiated.
func (s *Service) CreateOrder(ctx context.Context, userID int64, req OrderRequest) (*Order, error) {
	if !money.IsPositive(req.Amount) {
		return nil, apperr.ErrInvalidAmount
	}
	name := strings.TrimSpace(req.Category)
	if name == "" {
		name = DefaultCategory
	}
	category, err := s.store.CategoryByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	minor := money.ToMinor(req.Amount)
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	orderID, err := s.gateway.CreateOrder(ctx, minor, s.currency, receipt)
	if err != nil {
		s.logger.Error("gateway order failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	p := &models.Payment{
		UserID:     userID,
		OrderID:    orderID,
		Amount:     req.Amount,
		Currency:   s.currency,
		CategoryID: category.ID,
		Category:   category.Name,
		Status:     models.PaymentInitiated,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	return &Order{OrderID: orderID, AmountMinor: minor, Currency: s.currency, KeyID: s.keyID}, nil
}

// VerifyRequest carries the checkout result reported by the client.
type VerifyRequest struct {
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Signature     string `json:"signature"`
	PaymentMethod string `json:"payment_method"`
}

// Verify checks the checkout signature. A valid signature marks the payment
// successful and appends its ledger entry in one transaction; verifying an
// already successful payment again changes nothing.
func (s *Service) Verify(ctx context.Context, userID int64, req VerifyRequest) (*models.Payment, error) {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return nil, apperr.Required("order_id")
	case strings.TrimSpace(req.PaymentID) == "":
		return nil, apperr.Required("payment_id")
	case strings.TrimSpace(req.Signature) == "":
		return nil, apperr.Required("signature")
	}

	p, err := s.store.GetPaymentByOrder(ctx, userID, req.OrderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		if err := s.store.MarkPaymentFailed(ctx, userID, req.OrderID, req.PaymentID); err != nil {
			return nil, err
		}
		s.logger.Warn("payment signature rejected", slog.Int64("user_id", userID), slog.String("order_id", req.OrderID))
		return nil, apperr.ErrSignatureInvalid
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = DefaultMethod
	}

	var recorded bool
	err = s.store.WithTx(ctx, func(tx *storage.Tx) error {
		changed, err := tx.MarkPaymentSuccessful(ctx, userID, req.OrderID, req.PaymentID, method)
		if err != nil || !changed {
			return err
		}
		recorded = true
		return tx.CreateLedgerEntry(ctx, &models.LedgerEntry{
			UserID:        userID,
			CategoryID:    p.CategoryID,
			Amount:        p.Amount,
			OccurredAt:    s.now().In(s.loc),
			PaymentMethod: method,
			Description:   "Gateway payment " + req.OrderID,
		})
	})
	if err != nil {
		return nil, err
	}
	if recorded {
		s.logger.Info("payment recorded",
			slog.Int64("user_id", userID),
			slog.String("order_id", req.OrderID),
			slog.String("amount", p.Amount.String()),
		)
	}

	return s.store.GetPaymentByOrder(ctx, userID, req.OrderID)
}

// History lists the user's payments, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]models.Payment, error) {
	return s.store.ListPayments(ctx, userID)
}
