package storage

import (
	"context"
	"time"

	"trackex/internal/models"
	"trackex/internal/money"
)

const paymentColumns = `p.id, p.user_id, p.order_id, p.payment_id, p.amount_minor, p.currency,
	p.category_id, c.name, p.status, p.payment_method, p.created_at, p.updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var amount, created, updated int64
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.OrderID, &p.PaymentID, &amount, &p.Currency,
		&p.CategoryID, &p.Category, &status, &p.PaymentMethod, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.Amount = money.FromMinor(amount)
	p.Status = models.PaymentStatus(status)
	p.CreatedAt = fromMicros(created)
	p.UpdatedAt = fromMicros(updated)
	return &p, nil
}

// CreatePayment records a new gateway order and sets its ID.
func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	now := time.Now()
	err := db.queryRow(ctx, db.conn,
		`INSERT INTO payments (user_id, order_id, amount_minor, currency, category_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id`,
		p.UserID, p.OrderID, money.ToMinor(p.Amount), p.Currency, p.CategoryID, string(p.Status), toMicros(now), toMicros(now),
	).Scan(&p.ID)
	if err != nil {
		return rowErrConflict("create payment", err)
	}
	p.CreatedAt, p.UpdatedAt = now.UTC(), now.UTC()
	return nil
}

// GetPaymentByOrder retrieves a payment owned by userID by gateway order ID.
func (db *DB) GetPaymentByOrder(ctx context.Context, userID int64, orderID string) (*models.Payment, error) {
	p, err := scanPayment(db.queryRow(ctx, db.conn,
		`SELECT `+paymentColumns+` FROM payments p
		JOIN categories c ON c.category_id = p.category_id
		WHERE p.order_id = ? AND p.user_id = ?`, orderID, userID))
	if err != nil {
		return nil, rowErr("get payment", err)
	}
	return p, nil
}

// ListPayments returns a user's payments, newest first.
func (db *DB) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	rows, err := db.query(ctx, db.conn,
		`SELECT `+paymentColumns+` FROM payments p
		JOIN categories c ON c.category_id = p.category_id
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, unavailable("list payments", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, unavailable("list payments", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list payments", err)
	}
	return payments, nil
}

// MarkPaymentFailed flags a payment that has not already succeeded as failed.
func (db *DB) MarkPaymentFailed(ctx context.Context, userID int64, orderID, paymentID string) error {
	_, err := db.exec(ctx, db.conn,
		`UPDATE payments SET status = ?, payment_id = ?, updated_at = ?
		WHERE order_id = ? AND user_id = ? AND status <> ?`,
		string(models.PaymentFailed), paymentID, toMicros(time.Now()), orderID, userID, string(models.PaymentSuccessful),
	)
	if err != nil {
		return unavailable("mark payment failed", err)
	}
	return nil
}
