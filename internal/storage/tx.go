package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackex/internal/models"
)

// Tx is a unit of work whose writes commit or roll back together.
type Tx struct {
	db *DB
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction commits if fn returns nil
// and rolls back otherwise; fn's error is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{db: db, tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

// LockAccounts takes row locks on the given bank accounts in ascending id order
// and returns ErrNotFound unless every id exists. Postgres locks the rows with
// FOR UPDATE; on sqlite the single pooled connection already serializes
// transactions, so the same query only checks existence.
func (t *Tx) LockAccounts(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	distinct := make(map[int64]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := distinct[id]; ok {
			continue
		}
		distinct[id] = struct{}{}
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	rows, err := t.db.query(ctx, t.tx,
		`SELECT bank_acc_id FROM bank_accounts WHERE bank_acc_id IN (`+placeholders+`)
		ORDER BY bank_acc_id ASC`+t.db.dialect.forUpdate, args...)
	if err != nil {
		return unavailable("lock accounts", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		locked++
	}
	if err := rows.Err(); err != nil {
		return unavailable("lock accounts", err)
	}
	if locked != len(args) {
		return ErrNotFound
	}
	return nil
}

// AccountLink re-reads the user's link inside the transaction, locking it on
// postgres so a concurrent PIN change or re-link waits for the commit.
func (t *Tx) AccountLink(ctx context.Context, userID int64) (*models.AccountLink, error) {
	var l models.AccountLink
	var updated int64
	err := t.db.queryRow(ctx, t.tx,
		"SELECT user_id, bank_acc_id, pin_hash, updated_at FROM account_links WHERE user_id = ?"+t.db.dialect.forUpdate, userID,
	).Scan(&l.UserID, &l.BankAccID, &l.PINHash, &updated)
	if err != nil {
		return nil, rowErr("read account link", err)
	}
	l.UpdatedAt = fromMicros(updated)
	return &l, nil
}

// Balance reads an account balance in minor units.
func (t *Tx) Balance(ctx context.Context, bankAccID int64) (int64, error) {
	var balance int64
	err := t.db.queryRow(ctx, t.tx, "SELECT balance_minor FROM bank_accounts WHERE bank_acc_id = ?", bankAccID).Scan(&balance)
	if err != nil {
		return 0, rowErr("read balance", err)
	}
	return balance, nil
}

// Debit subtracts minor units from an account. It yields ErrInsufficientFunds
// instead of taking the balance below zero.
func (t *Tx) Debit(ctx context.Context, bankAccID, minor int64) error {
	res, err := t.db.exec(ctx, t.tx,
		"UPDATE bank_accounts SET balance_minor = balance_minor - ? WHERE bank_acc_id = ? AND balance_minor >= ?",
		minor, bankAccID, minor,
	)
	if err != nil {
		return unavailable("debit", err)
	}
	if err := affectedOne(res, "debit"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInsufficientFunds
		}
		return err
	}
	return nil
}

// Credit adds minor units to an account.
func (t *Tx) Credit(ctx context.Context, bankAccID, minor int64) error {
	res, err := t.db.exec(ctx, t.tx,
		"UPDATE bank_accounts SET balance_minor = balance_minor + ? WHERE bank_acc_id = ?",
		minor, bankAccID,
	)
	if err != nil {
		return unavailable("credit", err)
	}
	return affectedOne(res, "credit")
}

// CategoryByName looks up a category inside the transaction.
func (t *Tx) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return categoryByName(ctx, t.db, t.tx, name)
}

// CreateLedgerEntry appends an entry inside the transaction.
func (t *Tx) CreateLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	return insertLedgerEntry(ctx, t.db, t.tx, e)
}

// MarkPaymentSuccessful flags a payment as successful. It reports false when the
// payment had already succeeded, so callers can skip duplicate side effects.
func (t *Tx) MarkPaymentSuccessful(ctx context.Context, userID int64, orderID, paymentID, method string) (bool, error) {
	res, err := t.db.exec(ctx, t.tx,
		`UPDATE payments SET status = ?, payment_id = ?, payment_method = ?, updated_at = ?
		WHERE order_id = ? AND user_id = ? AND status <> ?`,
		string(models.PaymentSuccessful), paymentID, method, toMicros(time.Now()),
		orderID, userID, string(models.PaymentSuccessful),
	)
	if err != nil {
		return false, unavailable("mark payment successful", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("mark payment successful", err)
	}
	return n > 0, nil
}
