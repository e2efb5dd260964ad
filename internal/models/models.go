package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferCategory is the reserved category for engine-initiated ledger entries.
const TransferCategory = "ACCOUNT TRANSFER"

// TransferPaymentMethod is recorded on every transfer ledger entry.
const TransferPaymentMethod = "Account Transfer"

// User represents an application user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// BankAccount is a row of the pre-existing bank registry.
type BankAccount struct {
	ID            int64           `json:"bank_acc_id"`
	AccountNumber string          `json:"account_number"`
	HolderName    string          `json:"holder_name"`
	BankName      string          `json:"bank_name"`
	BranchName    string          `json:"branch_name"`
	IFSCCode      string          `json:"ifsc_code"`
	UniqueCode    string          `json:"-"`
	Balance       decimal.Decimal `json:"balance"`
}

// AccountIdentity is the full set of fields a user proves to link an account.
type AccountIdentity struct {
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"account_holder_name"`
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
	IFSCCode      string `json:"ifsc_code"`
	UniqueCode    string `json:"unique_code"`
}

// RecipientIdentity locates a transfer recipient.
type RecipientIdentity struct {
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
	IFSCCode      string `json:"ifsc_code"`
}

// AccountLink binds a user to one bank account behind a PIN.
type AccountLink struct {
	UserID    int64
	BankAccID int64
	PINHash   string
	UpdatedAt time.Time
}

// LinkedAccount is an AccountLink joined with its bank account.
type LinkedAccount struct {
	Link    AccountLink
	Account BankAccount
}

// Category is an entry of the fixed category catalog.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LedgerEntry is one categorized monetary record.
type LedgerEntry struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"-"`
	CategoryID    int64           `json:"category_id"`
	Category      string          `json:"category_name"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
}

// Budget is a per-user, per-category spending ceiling.
type Budget struct {
	UserID     int64           `json:"-"`
	CategoryID int64           `json:"category_id"`
	Category   string          `json:"category_name"`
	Ceiling    decimal.Decimal `json:"budget"`
}

// PaymentStatus is the lifecycle state of a gateway payment.
type PaymentStatus string

const (
	PaymentInitiated  PaymentStatus = "initiated"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
)

// Payment records a gateway-originated payment.
type Payment struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"-"`
	OrderID       string          `json:"order_id"`
	PaymentID     string          `json:"payment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CategoryID    int64           `json:"category_id"`
	Category      string          `json:"category"`
	Status        PaymentStatus   `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
