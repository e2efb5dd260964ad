package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStat is one category's share of a month's spending.
type CategoryStat struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// Statistics summarizes a civil month of a user's ledger.
type Statistics struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	MonthName      string          `json:"month_name"`
	Total          decimal.Decimal `json:"total"`
	Categories     []CategoryStat  `json:"categories"`
	PrevYear       int             `json:"prev_year"`
	PrevMonth      int             `json:"prev_month"`
	NextYear       int             `json:"next_year"`
	NextMonth      int             `json:"next_month"`
	IsCurrentMonth bool            `json:"is_current_month"`
}

var hundred = decimal.NewFromInt(100)

// Statistics breaks the month's spending down by category.
func (s *Service) Statistics(ctx context.Context, userID int64, m Month) (*Statistics, error) {
	m, err := s.resolve(m)
	if err != nil {
		return nil, err
	}
	lf, err := s.MonthFilter(userID, m)
	if err != nil {
		return nil, err
	}

	totals, err := s.store.CategoryTotals(ctx, lf)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, ct := range totals {
		total = total.Add(ct.Total)
	}

	items := make([]CategoryStat, 0, len(totals))
	for _, ct := range totals {
		percentage := 0.0
		if total.IsPositive() {
			percentage = ct.Total.Mul(hundred).Div(total).Round(2).InexactFloat64()
		}
		items = append(items, CategoryStat{
			Category:   ct.Category,
			Total:      ct.Total,
			Count:      ct.Count,
			Percentage: percentage,
		})
	}

	first := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, s.loc)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	now := s.now().In(s.loc)

	return &Statistics{
		Year:           m.Year,
		Month:          m.Month,
		MonthName:      first.Month().String(),
		Total:          total,
		Categories:     items,
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		IsCurrentMonth: m.Year == now.Year() && m.Month == int(now.Month()),
	}, nil
}
