package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for reporting at the operation boundary.
type Kind int

const (
	Fatal Kind = iota
	Unauthenticated
	Validation
	NotFound
	Conflict
	InsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InsufficientFunds:
		return "insufficient_funds"
	default:
		return "fatal"
	}
}

// HTTPStatus returns the response status a handler reports for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified, client-safe error.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Invalid creates a Validation error scoped to a request field.
func Invalid(field, message string) *Error {
	return &Error{Kind: Validation, Code: "invalid_" + field, Field: field, Message: message}
}

// Required reports a missing required field.
func Required(field string) *Error {
	return Invalid(field, "is required")
}

// KindOf returns the kind of the first *Error in err's chain.
// Unclassified errors are Fatal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Fatal
}

// As returns the first *Error in err's chain, or a generic Fatal error.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind != Fatal {
		return e
	}
	return ErrInternal
}

var (
	ErrInternal = New(Fatal, "internal", "internal server error")

	ErrUnauthenticated    = New(Unauthenticated, "unauthenticated", "authentication required")
	ErrInvalidCredentials = New(Unauthenticated, "invalid_credentials", "invalid username or password")

	ErrUserExists           = New(Conflict, "user_exists", "username or email already exists")
	ErrOldPasswordIncorrect = New(Conflict, "old_password_incorrect", "old password is incorrect")

	ErrNoMatchingAccount = New(NotFound, "no_matching_account", "bank account details do not match any record")
	ErrNotLinked         = New(NotFound, "not_linked", "no linked bank account")
	ErrWrongPin          = New(Conflict, "wrong_pin", "incorrect PIN")
	ErrPinMismatch       = &Error{Kind: Validation, Code: "pin_mismatch", Field: "confirm_pin", Message: "new PIN and confirmation do not match"}
	ErrOldPinIncorrect   = New(Conflict, "old_pin_incorrect", "old PIN is incorrect")

	ErrNoSenderAccount   = New(NotFound, "no_sender_account", "no linked bank account to send from")
	ErrInvalidAmount     = &Error{Kind: Validation, Code: "invalid_amount", Field: "amount", Message: "must be a positive amount with at most two decimal places"}
	ErrRecipientNotFound = New(NotFound, "recipient_not_found", "recipient account not found")
	ErrSameAccount       = &Error{Kind: Validation, Code: "same_account", Field: "account_number", Message: "cannot transfer to the sending account"}
	ErrInsufficientFunds = New(InsufficientFunds, "insufficient_funds", "insufficient funds")

	ErrCategoryNotFound = New(NotFound, "category_not_found", "category not found")
	ErrNotFound         = New(NotFound, "not_found", "not found")
	ErrBudgetExists     = New(Conflict, "budget_exists", "budget already exists for this category")

	ErrPaymentNotFound  = New(NotFound, "payment_not_found", "payment not found")
	ErrSignatureInvalid = New(Conflict, "signature_invalid", "payment signature verification failed")

	ErrMissingTransferCategory = New(Fatal, "missing_transfer_category", "reserved transfer category is not configured")
	ErrStoreUnavailable        = New(Fatal, "store_unavailable", "store unavailable")
)
