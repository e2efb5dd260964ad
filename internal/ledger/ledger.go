package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trackex/internal/apperr"
	"trackex/internal/models"
	"trackex/internal/money"
	"trackex/internal/storage"
)

// DateLayout is the calendar date format accepted in requests.
const DateLayout = "2006-01-02"

// DefaultRecent is how many entries Recent returns when n is not positive.
const DefaultRecent = 3

// AllCategories disables the category filter of a query.
const AllCategories = "All"

// Store is the ledger persistence the service needs.
type Store interface {
	Categories(ctx context.Context) ([]models.Category, error)
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, f storage.LedgerFilter) ([]models.LedgerEntry, error)
	SumLedgerEntries(ctx context.Context, f storage.LedgerFilter) (decimal.Decimal, error)
	CategoryTotals(ctx context.Context, f storage.LedgerFilter) ([]storage.CategoryTotal, error)
	DeleteLedgerEntry(ctx context.Context, userID, id int64) error
}

// Service records and queries a user's categorized entries.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the civil timezone dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the civil timezone of the service.
func (s *Service) Location() *time.Location {
	return s.loc
}

// RecordRequest is a user-entered expense.
type RecordRequest struct {
	Category      string          `json:"category_name"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"payment_method"`
}

// Record appends an entry for the user. A supplied date keeps the current
// civil time of day; an empty date means now.
func (s *Service) Record(ctx context.Context, userID int64, req RecordRequest) (*models.LedgerEntry, error) {
	switch {
	case strings.TrimSpace(req.Category) == "":
		return nil, apperr.Required("category_name")
	case strings.TrimSpace(req.Description) == "":
		return nil, apperr.Required("description")
	case strings.TrimSpace(req.PaymentMethod) == "":
		return nil, apperr.Required("payment_method")
	}
	if !money.IsPositive(req.Amount) {
		return nil, apperr.ErrInvalidAmount
	}

	now := s.now().In(s.loc)
	at := now
	if req.Date != "" {
		day, err := time.ParseInLocation(DateLayout, req.Date, s.loc)
		if err != nil {
			return nil, apperr.Invalid("date", "must be YYYY-MM-DD")
		}
		at = time.Date(day.Year(), day.Month(), day.Day(),
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), s.loc)
	}

	category, err := s.store.CategoryByName(ctx, req.Category)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	e := &models.LedgerEntry{
		UserID:        userID,
		CategoryID:    category.ID,
		Category:      category.Name,
		Amount:        req.Amount,
		OccurredAt:    at,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Description:   strings.TrimSpace(req.Description),
	}
	if err := s.store.CreateLedgerEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Filters narrows a query. Dates are inclusive calendar days.
type Filters struct {
	StartDate string
	EndDate   string
	Category  string
}

func (s *Service) filter(userID int64, f Filters) (storage.LedgerFilter, error) {
	lf := storage.LedgerFilter{UserID: userID}
	if f.StartDate != "" {
		start, err := time.ParseInLocation(DateLayout, f.StartDate, s.loc)
		if err != nil {
			return lf, apperr.Invalid("start_date", "must be YYYY-MM-DD")
		}
		lf.From = start
	}
	if f.EndDate != "" {
		end, err := time.ParseInLocation(DateLayout, f.EndDate, s.loc)
		if err != nil {
			return lf, apperr.Invalid("end_date", "must be YYYY-MM-DD")
		}
		lf.Until = end.AddDate(0, 0, 1)
	}
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, AllCategories) {
		lf.Category = c
	}
	return lf, nil
}

// Query returns the user's entries matching f, most recent first.
func (s *Service) Query(ctx context.Context, userID int64, f Filters) ([]models.LedgerEntry, error) {
	lf, err := s.filter(userID, f)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListLedgerEntries(ctx, lf)
	if err != nil {
		return nil, err
	}
	s.localize(entries)
	return entries, nil
}

// Recent returns the n most recent entries of the user.
func (s *Service) Recent(ctx context.Context, userID int64, n int) ([]models.LedgerEntry, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	entries, err := s.store.ListLedgerEntries(ctx, storage.LedgerFilter{UserID: userID, Limit: n})
	if err != nil {
		return nil, err
	}
	s.localize(entries)
	return entries, nil
}

func (s *Service) localize(entries []models.LedgerEntry) {
	for i := range entries {
		entries[i].OccurredAt = entries[i].OccurredAt.In(s.loc)
	}
}

// Delete removes one of the user's entries. Entries of other users are
// reported exactly like missing ones.
func (s *Service) Delete(ctx context.Context, userID, entryID int64) error {
	err := s.store.DeleteLedgerEntry(ctx, userID, entryID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// Categories lists the category catalog.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories(ctx)
}

// Month identifies a civil calendar month. Zero fields mean the current one.
type Month struct {
	Year  int
	Month int
}

func (s *Service) resolve(m Month) (Month, error) {
	now := s.now().In(s.loc)
	if m.Year == 0 {
		m.Year = now.Year()
	}
	if m.Month == 0 {
		m.Month = int(now.Month())
	}
	if m.Month < 1 || m.Month > 12 {
		return m, apperr.Invalid("month", "must be between 1 and 12")
	}
	if m.Year < 1 {
		return m, apperr.Invalid("year", "must be positive")
	}
	return m, nil
}

// MonthFilter returns the filter covering the civil month m for a user.
func (s *Service) MonthFilter(userID int64, m Month) (storage.LedgerFilter, error) {
	m, err := s.resolve(m)
	if err != nil {
		return storage.LedgerFilter{}, err
	}
	from := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, s.loc)
	return storage.LedgerFilter{UserID: userID, From: from, Until: from.AddDate(0, 1, 0)}, nil
}

// MonthlyTotal sums the user's entries in the civil month m; zero when none.
func (s *Service) MonthlyTotal(ctx context.Context, userID int64, m Month) (decimal.Decimal, error) {
	lf, err := s.MonthFilter(userID, m)
	if err != nil {
		return decimal.Zero, err
	}
	return s.store.SumLedgerEntries(ctx, lf)
}
