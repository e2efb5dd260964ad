package storage

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trackex/internal/models"
	"trackex/internal/money"
)

// LedgerFilter selects a user's ledger entries. Zero-valued fields do not filter.
type LedgerFilter struct {
	UserID   int64
	From     time.Time // inclusive
	Until    time.Time // exclusive
	Category string
	Limit    int
}

// where builds a parameterized condition list for the filter.
func (f LedgerFilter) where() (string, []any) {
	conds := []string{"e.user_id = ?"}
	args := []any{f.UserID}
	if !f.From.IsZero() {
		conds = append(conds, "e.occurred_at >= ?")
		args = append(args, toMicros(f.From))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "e.occurred_at < ?")
		args = append(args, toMicros(f.Until))
	}
	if f.Category != "" {
		conds = append(conds, "c.name = ?")
		args = append(args, f.Category)
	}
	return strings.Join(conds, " AND "), args
}

// Categories lists the category catalog ordered by name.
func (db *DB) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.query(ctx, db.conn, "SELECT category_id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, unavailable("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list categories", err)
	}
	return categories, nil
}

// CategoryByName looks up a category by exact name.
func (db *DB) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return categoryByName(ctx, db, db.conn, name)
}

func categoryByName(ctx context.Context, db *DB, q querier, name string) (*models.Category, error) {
	var c models.Category
	if err := db.queryRow(ctx, q, "SELECT category_id, name FROM categories WHERE name = ?", name).Scan(&c.ID, &c.Name); err != nil {
		return nil, rowErr("get category", err)
	}
	return &c, nil
}

// CreateLedgerEntry appends an entry and sets its ID.
func (db *DB) CreateLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	return insertLedgerEntry(ctx, db, db.conn, e)
}

func insertLedgerEntry(ctx context.Context, db *DB, q querier, e *models.LedgerEntry) error {
	err := db.queryRow(ctx, q,
		`INSERT INTO ledger_entries (user_id, category_id, amount_minor, occurred_at, payment_method, description)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.UserID, e.CategoryID, money.ToMinor(e.Amount), toMicros(e.OccurredAt), e.PaymentMethod, e.Description,
	).Scan(&e.ID)
	if err != nil {
		return unavailable("create ledger entry", err)
	}
	return nil
}

// ListLedgerEntries returns matching entries, most recent first.
func (db *DB) ListLedgerEntries(ctx context.Context, f LedgerFilter) ([]models.LedgerEntry, error) {
	where, args := f.where()
	query := `SELECT e.id, e.user_id, e.category_id, c.name, e.amount_minor, e.occurred_at, e.payment_method, e.description
		FROM ledger_entries e
		JOIN categories c ON c.category_id = e.category_id
		WHERE ` + where + `
		ORDER BY e.occurred_at DESC, e.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, unavailable("list ledger entries", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		var amount, occurred int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Category, &amount, &occurred, &e.PaymentMethod, &e.Description); err != nil {
			return nil, unavailable("list ledger entries", err)
		}
		e.Amount = money.FromMinor(amount)
		e.OccurredAt = fromMicros(occurred)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list ledger entries", err)
	}
	return entries, nil
}

// SumLedgerEntries totals the amounts of matching entries; zero when none match.
func (db *DB) SumLedgerEntries(ctx context.Context, f LedgerFilter) (decimal.Decimal, error) {
	where, args := f.where()
	var total int64
	err := db.queryRow(ctx, db.conn,
		`SELECT COALESCE(SUM(e.amount_minor), 0)
		FROM ledger_entries e
		JOIN categories c ON c.category_id = e.category_id
		WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, unavailable("sum ledger entries", err)
	}
	return money.FromMinor(total), nil
}

// DeleteLedgerEntry deletes an entry owned by userID.
// An entry that does not exist or belongs to another user yields ErrNotFound.
func (db *DB) DeleteLedgerEntry(ctx context.Context, userID, id int64) error {
	res, err := db.exec(ctx, db.conn, "DELETE FROM ledger_entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return unavailable("delete ledger entry", err)
	}
	return affectedOne(res, "delete ledger entry")
}

// CategoryTotal is the aggregate of one category's entries.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// CategoryTotals groups matching entries by category, largest total first.
func (db *DB) CategoryTotals(ctx context.Context, f LedgerFilter) ([]CategoryTotal, error) {
	where, args := f.where()
	rows, err := db.query(ctx, db.conn,
		`SELECT c.name, SUM(e.amount_minor) AS total, COUNT(*)
		FROM ledger_entries e
		JOIN categories c ON c.category_id = e.category_id
		WHERE `+where+`
		GROUP BY c.name
		ORDER BY total DESC, c.name ASC`, args...)
	if err != nil {
		return nil, unavailable("category totals", err)
	}
	defer rows.Close()

	totals := []CategoryTotal{}
	for rows.Next() {
		var ct CategoryTotal
		var minor int64
		if err := rows.Scan(&ct.Category, &minor, &ct.Count); err != nil {
			return nil, unavailable("category totals", err)
		}
		ct.Total = money.FromMinor(minor)
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("category totals", err)
	}
	return totals, nil
}
