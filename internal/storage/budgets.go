package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"trackex/internal/models"
	"trackex/internal/money"
)

// GetBudget retrieves the user's budget for a category name.
func (db *DB) GetBudget(ctx context.Context, userID int64, category string) (*models.Budget, error) {
	var b models.Budget
	var ceiling int64
	err := db.queryRow(ctx, db.conn,
		`SELECT b.user_id, b.category_id, c.name, b.ceiling_minor
		FROM budgets b
		JOIN categories c ON c.category_id = b.category_id
		WHERE b.user_id = ? AND c.name = ?`,
		userID, category,
	).Scan(&b.UserID, &b.CategoryID, &b.Category, &ceiling)
	if err != nil {
		return nil, rowErr("get budget", err)
	}
	b.Ceiling = money.FromMinor(ceiling)
	return &b, nil
}

// ListBudgets returns all budgets of a user ordered by category name.
func (db *DB) ListBudgets(ctx context.Context, userID int64) ([]models.Budget, error) {
	rows, err := db.query(ctx, db.conn,
		`SELECT b.user_id, b.category_id, c.name, b.ceiling_minor
		FROM budgets b
		JOIN categories c ON c.category_id = b.category_id
		WHERE b.user_id = ?
		ORDER BY c.name ASC`, userID)
	if err != nil {
		return nil, unavailable("list budgets", err)
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		var ceiling int64
		if err := rows.Scan(&b.UserID, &b.CategoryID, &b.Category, &ceiling); err != nil {
			return nil, unavailable("list budgets", err)
		}
		b.Ceiling = money.FromMinor(ceiling)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list budgets", err)
	}
	return budgets, nil
}

// InsertBudget creates a budget. An existing budget for the pair yields ErrConflict.
func (db *DB) InsertBudget(ctx context.Context, userID, categoryID int64, ceiling decimal.Decimal) error {
	res, err := db.exec(ctx, db.conn,
		`INSERT INTO budgets (user_id, category_id, ceiling_minor) VALUES (?, ?, ?)
		ON CONFLICT (user_id, category_id) DO NOTHING`,
		userID, categoryID, money.ToMinor(ceiling),
	)
	if err != nil {
		return unavailable("insert budget", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("insert budget", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateBudget changes an existing budget's ceiling. A missing budget yields ErrNotFound.
func (db *DB) UpdateBudget(ctx context.Context, userID, categoryID int64, ceiling decimal.Decimal) error {
	res, err := db.exec(ctx, db.conn,
		"UPDATE budgets SET ceiling_minor = ? WHERE user_id = ? AND category_id = ?",
		money.ToMinor(ceiling), userID, categoryID,
	)
	if err != nil {
		return unavailable("update budget", err)
	}
	return affectedOne(res, "update budget")
}
