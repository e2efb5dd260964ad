package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
	"trackex/internal/auth"
	"trackex/internal/events"
	"trackex/internal/keylock"
	"trackex/internal/models"
	"trackex/internal/money"
	"trackex/internal/storage"
)

// Store is the persistence the engine needs.
type Store interface {
	GetAccountLink(ctx context.Context, userID int64) (*models.AccountLink, error)
	FindRecipient(ctx context.Context, id models.RecipientIdentity) (*models.BankAccount, error)
	WithTx(ctx context.Context, fn func(*storage.Tx) error) error
}

// Request is a transfer instruction from the linked account of the caller.
type Request struct {
	Recipient models.RecipientIdentity
	Amount    decimal.Decimal
	PIN       string
}

// Receipt describes a committed transfer. It carries no balances.
type Receipt struct {
	EntryID       int64           `json:"entry_id"`
	Amount        decimal.Decimal `json:"amount"`
	RecipientName string          `json:"recipient_name"`
	OccurredAt    time.Time       `json:"date"`
}

// Engine moves funds between bank accounts and records the ledger entry.
type Engine struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	locks     *keylock.Locker
	loc       *time.Location
	category  string
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets where committed transfers are announced.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLocation sets the civil timezone transfer timestamps are recorded in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(store Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		publisher: events.Nop{},
		logger:    logger,
		locks:     keylock.New(),
		loc:       time.UTC,
		category:  models.TransferCategory,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer debits the caller's linked account, credits the recipient and
// appends one ledger entry for the caller, all in one committed unit.
func (e *Engine) Transfer(ctx context.Context, userID int64, req Request) (*Receipt, error) {
	link, err := e.store.GetAccountLink(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNoSenderAccount
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPIN(req.PIN, link.PINHash) {
		return nil, apperr.ErrWrongPin
	}

	if !money.IsPositive(req.Amount) {
		return nil, apperr.ErrInvalidAmount
	}

	if err := requireRecipient(req.Recipient); err != nil {
		return nil, err
	}
	recipient, err := e.store.FindRecipient(ctx, req.Recipient)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	if recipient.ID == link.BankAccID {
		return nil, apperr.ErrSameAccount
	}

	unlock := e.locks.Lock(link.BankAccID, recipient.ID)
	defer unlock()

	minor := money.ToMinor(req.Amount)
	entry := &models.LedgerEntry{
		UserID:        userID,
		Amount:        req.Amount,
		OccurredAt:    e.now().In(e.loc),
		PaymentMethod: models.TransferPaymentMethod,
		Description:   "Paid to " + recipient.HolderName,
	}

	err = e.store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.LockAccounts(ctx, link.BankAccID, recipient.ID); err != nil {
			return err
		}

		// The link may have been replaced since the PIN was checked.
		current, err := tx.AccountLink(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ErrNoSenderAccount
		}
		if err != nil {
			return err
		}
		if current.BankAccID != link.BankAccID {
			return apperr.ErrNoSenderAccount
		}
		if current.PINHash != link.PINHash {
			return apperr.ErrWrongPin
		}

		balance, err := tx.Balance(ctx, link.BankAccID)
		if err != nil {
			return err
		}
		if balance < minor {
			return apperr.ErrInsufficientFunds
		}

		if err := tx.Debit(ctx, link.BankAccID, minor); err != nil {
			if errors.Is(err, storage.ErrInsufficientFunds) {
				return apperr.ErrInsufficientFunds
			}
			return err
		}
		if err := tx.Credit(ctx, recipient.ID, minor); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}

		category, err := tx.CategoryByName(ctx, e.category)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ErrMissingTransferCategory
		}
		if err != nil {
			return err
		}
		entry.CategoryID = category.ID
		entry.Category = category.Name

		return tx.CreateLedgerEntry(ctx, entry)
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.Fatal {
			return nil, err
		}
		e.logger.Error("transfer rolled back",
			slog.Int64("user_id", userID),
			slog.Int64("from_bank_acc_id", link.BankAccID),
			slog.Int64("to_bank_acc_id", recipient.ID),
			slog.Any("error", err),
		)
		return nil, fatal(err)
	}

	e.logger.Info("transfer committed",
		slog.Int64("entry_id", entry.ID),
		slog.Int64("from_bank_acc_id", link.BankAccID),
		slog.Int64("to_bank_acc_id", recipient.ID),
		slog.String("amount", req.Amount.String()),
	)

	ev := events.TransferCompleted{
		EntryID:       entry.ID,
		UserID:        userID,
		FromAccountID: link.BankAccID,
		ToAccountID:   recipient.ID,
		Amount:        req.Amount,
		OccurredAt:    entry.OccurredAt,
	}
	if err := e.publisher.PublishTransfer(ctx, ev); err != nil {
		e.logger.Error("failed to publish transfer event", slog.Int64("entry_id", entry.ID), slog.Any("error", err))
	}

	return &Receipt{
		EntryID:       entry.ID,
		Amount:        req.Amount,
		RecipientName: recipient.HolderName,
		OccurredAt:    entry.OccurredAt,
	}, nil
}

func requireRecipient(r models.RecipientIdentity) error {
	switch {
	case strings.TrimSpace(r.AccountNumber) == "":
		return apperr.Required("account_number")
	case strings.TrimSpace(r.HolderName) == "":
		return apperr.Required("holder_name")
	case strings.TrimSpace(r.IFSCCode) == "":
		return apperr.Required("ifsc_code")
	}
	return nil
}

// fatal makes sure a failure inside the committed unit is reported as Fatal.
func fatal(err error) error {
	if apperr.KindOf(err) == apperr.Fatal {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrInternal, err)
}
