package budget

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
	"trackex/internal/ledger"
	"trackex/internal/models"
	"trackex/internal/money"
	"trackex/internal/storage"
)

// Store is the budget persistence the tracker needs.
type Store interface {
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	GetBudget(ctx context.Context, userID int64, category string) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID int64) ([]models.Budget, error)
	InsertBudget(ctx context.Context, userID, categoryID int64, ceiling decimal.Decimal) error
	UpdateBudget(ctx context.Context, userID, categoryID int64, ceiling decimal.Decimal) error
	ListLedgerEntries(ctx context.Context, f storage.LedgerFilter) ([]models.LedgerEntry, error)
	SumLedgerEntries(ctx context.Context, f storage.LedgerFilter) (decimal.Decimal, error)
}

// Months scopes ledger aggregates to a civil month.
type Months interface {
	MonthFilter(userID int64, m ledger.Month) (storage.LedgerFilter, error)
}

// Tracker compares per-category ceilings with the ledger.
type Tracker struct {
	store  Store
	months Months
}

// New creates a Tracker.
func New(store Store, months Months) *Tracker {
	return &Tracker{store: store, months: months}
}

// Get returns the user's ceiling for a category.
func (t *Tracker) Get(ctx context.Context, userID int64, category string) (*models.Budget, error) {
	if strings.TrimSpace(category) == "" {
		return nil, apperr.Required("category_name")
	}
	b, err := t.store.GetBudget(ctx, userID, category)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	return b, err
}

// List returns every budget of the user.
func (t *Tracker) List(ctx context.Context, userID int64) ([]models.Budget, error) {
	return t.store.ListBudgets(ctx, userID)
}

func (t *Tracker) category(ctx context.Context, name string, ceiling decimal.Decimal) (*models.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Required("category_name")
	}
	if !money.IsNonNegative(ceiling) {
		return nil, apperr.Invalid("budget", "must be a non-negative amount with at most two decimals")
	}
	c, err := t.store.CategoryByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrCategoryNotFound
	}
	return c, err
}

// Insert creates a ceiling. It never overwrites an existing one.
func (t *Tracker) Insert(ctx context.Context, userID int64, category string, ceiling decimal.Decimal) error {
	c, err := t.category(ctx, category, ceiling)
	if err != nil {
		return err
	}
	err = t.store.InsertBudget(ctx, userID, c.ID, ceiling)
	if errors.Is(err, storage.ErrConflict) {
		return apperr.ErrBudgetExists
	}
	return err
}

// Update changes an existing ceiling.
func (t *Tracker) Update(ctx context.Context, userID int64, category string, ceiling decimal.Decimal) error {
	c, err := t.category(ctx, category, ceiling)
	if err != nil {
		return err
	}
	err = t.store.UpdateBudget(ctx, userID, c.ID, ceiling)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// MonthExpense is a category's spending in the current civil month.
type MonthExpense struct {
	Category string               `json:"category_name"`
	Total    decimal.Decimal      `json:"total"`
	Entries  []models.LedgerEntry `json:"expenses"`
}

func (t *Tracker) currentMonth(userID int64, category string) (storage.LedgerFilter, error) {
	if strings.TrimSpace(category) == "" {
		return storage.LedgerFilter{}, apperr.Required("category_name")
	}
	f, err := t.months.MonthFilter(userID, ledger.Month{})
	if err != nil {
		return f, err
	}
	f.Category = category
	return f, nil
}

// CurrentMonthExpenseForCategory sums the user's entries of one category in
// the current civil month.
func (t *Tracker) CurrentMonthExpenseForCategory(ctx context.Context, userID int64, category string) (decimal.Decimal, error) {
	f, err := t.currentMonth(userID, category)
	if err != nil {
		return decimal.Zero, err
	}
	return t.store.SumLedgerEntries(ctx, f)
}

// CurrentMonthExpenses lists the entries behind CurrentMonthExpenseForCategory.
func (t *Tracker) CurrentMonthExpenses(ctx context.Context, userID int64, category string) (*MonthExpense, error) {
	f, err := t.currentMonth(userID, category)
	if err != nil {
		return nil, err
	}
	entries, err := t.store.ListLedgerEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return &MonthExpense{Category: category, Total: total, Entries: entries}, nil
}

// Status compares a ceiling with the current month's spending.
// Remaining is negative when the ceiling is exceeded.
type Status struct {
	Category  string          `json:"category_name"`
	Ceiling   decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}

// Status reports how much of the category's ceiling is left this month.
func (t *Tracker) Status(ctx context.Context, userID int64, category string) (*Status, error) {
	b, err := t.Get(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	spent, err := t.CurrentMonthExpenseForCategory(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	remaining := b.Ceiling.Sub(spent)
	return &Status{
		Category:  b.Category,
		Ceiling:   b.Ceiling,
		Spent:     spent,
		Remaining: remaining,
		Exceeded:  remaining.IsNegative(),
	}, nil
}
