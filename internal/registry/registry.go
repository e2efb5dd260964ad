package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
	"trackex/internal/auth"
	"trackex/internal/keylock"
	"trackex/internal/models"
	"trackex/internal/storage"
)

// MaskChar replaces the hidden characters of an account number.
const MaskChar = "x"

// Store is the registry persistence the service needs.
type Store interface {
	FindBankAccount(ctx context.Context, id models.AccountIdentity) (*models.BankAccount, error)
	UpsertAccountLink(ctx context.Context, userID, bankAccID int64, pinHash string) error
	GetLinkedAccount(ctx context.Context, userID int64) (*models.LinkedAccount, error)
	UpdateLinkPIN(ctx context.Context, userID int64, pinHash string) error
}

// Registry links users to bank accounts behind a PIN.
type Registry struct {
	store Store
	locks *keylock.Locker
}

// New creates a Registry.
func New(store Store) *Registry {
	return &Registry{store: store, locks: keylock.New()}
}

// MaskAccountNumber hides all but the last four characters.
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat(MaskChar, len(number)-4) + number[len(number)-4:]
}

// LinkAccount verifies the identity fields against the registry and binds the
// matching account to the user, replacing any previous link and PIN.
func (r *Registry) LinkAccount(ctx context.Context, userID int64, id models.AccountIdentity, pin string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if !auth.ValidPIN(pin) {
		return apperr.Invalid("pin", "must be exactly 4 digits")
	}

	account, err := r.store.FindBankAccount(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrNoMatchingAccount
	}
	if err != nil {
		return err
	}

	hash, err := auth.HashPIN(pin)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(userID)
	defer unlock()
	return r.store.UpsertAccountLink(ctx, userID, account.ID, hash)
}

func requireIdentity(id models.AccountIdentity) error {
	fields := []struct{ name, value string }{
		{"account_number", id.AccountNumber},
		{"account_holder_name", id.HolderName},
		{"bank_name", id.BankName},
		{"branch_name", id.BranchName},
		{"ifsc_code", id.IFSCCode},
		{"unique_code", id.UniqueCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Required(f.name)
		}
	}
	return nil
}

// MaskedView is the always-masked account summary.
type MaskedView struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

// Masked returns the linked account number with all but the last four
// characters hidden, together with its balance.
func (r *Registry) Masked(ctx context.Context, userID int64) (*MaskedView, error) {
	la, err := r.linked(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MaskedView{
		AccountNumber: MaskAccountNumber(la.Account.AccountNumber),
		Balance:       la.Account.Balance,
	}, nil
}

// VerifyPIN returns the real balance when pin matches the stored PIN.
func (r *Registry) VerifyPIN(ctx context.Context, userID int64, pin string) (decimal.Decimal, error) {
	if pin == "" {
		return decimal.Zero, apperr.Required("pin")
	}
	la, err := r.linked(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !auth.CheckPIN(pin, la.Link.PINHash) {
		return decimal.Zero, apperr.ErrWrongPin
	}
	return la.Account.Balance, nil
}

// ChangePINRequest holds PIN change fields.
type ChangePINRequest struct {
	OldPIN     string `json:"old_pin"`
	NewPIN     string `json:"new_pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

// ChangePIN replaces the stored PIN after checking the confirmation and old PIN.
func (r *Registry) ChangePIN(ctx context.Context, userID int64, req ChangePINRequest) error {
	if req.OldPIN == "" {
		return apperr.Required("old_pin")
	}
	if !auth.ValidPIN(req.NewPIN) {
		return apperr.Invalid("new_pin", "must be exactly 4 digits")
	}
	if req.NewPIN != req.ConfirmPIN {
		return apperr.ErrPinMismatch
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	la, err := r.linked(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPIN(req.OldPIN, la.Link.PINHash) {
		return apperr.ErrOldPinIncorrect
	}

	hash, err := auth.HashPIN(req.NewPIN)
	if err != nil {
		return err
	}
	err = r.store.UpdateLinkPIN(ctx, userID, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrNotLinked
	}
	return err
}

// Profile is the owner's view of the linked account.
type Profile struct {
	HolderName    string `json:"account_holder_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
	IFSCCode      string `json:"ifsc_code"`
}

// Profile returns the holder details of the user's linked account.
func (r *Registry) Profile(ctx context.Context, userID int64) (*Profile, error) {
	la, err := r.linked(ctx, userID)
	if err != nil {
		return nil, err
	}
	a := la.Account
	return &Profile{
		HolderName:    a.HolderName,
		AccountNumber: a.AccountNumber,
		BankName:      a.BankName,
		BranchName:    a.BranchName,
		IFSCCode:      a.IFSCCode,
	}, nil
}

func (r *Registry) linked(ctx context.Context, userID int64) (*models.LinkedAccount, error) {
	la, err := r.store.GetLinkedAccount(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotLinked
	}
	return la, err
}
