package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"trackex/internal/models"
	"trackex/internal/money"
)

const bankAccountColumns = "bank_acc_id, account_number, holder_name, bank_name, branch_name, ifsc_code, unique_code, balance_minor"

func scanBankAccount(row interface{ Scan(...any) error }) (*models.BankAccount, error) {
	var a models.BankAccount
	var balance int64
	if err := row.Scan(&a.ID, &a.AccountNumber, &a.HolderName, &a.BankName, &a.BranchName, &a.IFSCCode, &a.UniqueCode, &balance); err != nil {
		return nil, err
	}
	a.Balance = money.FromMinor(balance)
	return &a, nil
}

// InsertBankAccount adds a registry row unless one with the same account number
// and IFSC code exists. It reports whether a row was inserted; existing rows,
// including their balances, are left untouched.
func (db *DB) InsertBankAccount(ctx context.Context, a *models.BankAccount) (bool, error) {
	err := db.queryRow(ctx, db.conn,
		`INSERT INTO bank_accounts (account_number, holder_name, bank_name, branch_name, ifsc_code, unique_code, balance_minor)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_number, ifsc_code) DO NOTHING
		RETURNING bank_acc_id`,
		a.AccountNumber, a.HolderName, a.BankName, a.BranchName, a.IFSCCode, a.UniqueCode, money.ToMinor(a.Balance),
	).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("insert bank account", err)
	}
	return true, nil
}

// GetBankAccount retrieves a bank account by ID.
func (db *DB) GetBankAccount(ctx context.Context, id int64) (*models.BankAccount, error) {
	a, err := scanBankAccount(db.queryRow(ctx, db.conn, "SELECT "+bankAccountColumns+" FROM bank_accounts WHERE bank_acc_id = ?", id))
	if err != nil {
		return nil, rowErr("get bank account", err)
	}
	return a, nil
}

// FindBankAccount returns the account matching every identity field.
func (db *DB) FindBankAccount(ctx context.Context, id models.AccountIdentity) (*models.BankAccount, error) {
	a, err := scanBankAccount(db.queryRow(ctx, db.conn,
		`SELECT `+bankAccountColumns+` FROM bank_accounts
		WHERE account_number = ? AND holder_name = ? AND bank_name = ?
		  AND branch_name = ? AND ifsc_code = ? AND unique_code = ?`,
		id.AccountNumber, id.HolderName, id.BankName, id.BranchName, id.IFSCCode, id.UniqueCode,
	))
	if err != nil {
		return nil, rowErr("find bank account", err)
	}
	return a, nil
}

// FindRecipient returns the account matching a transfer recipient identity.
func (db *DB) FindRecipient(ctx context.Context, id models.RecipientIdentity) (*models.BankAccount, error) {
	a, err := scanBankAccount(db.queryRow(ctx, db.conn,
		`SELECT `+bankAccountColumns+` FROM bank_accounts
		WHERE account_number = ? AND holder_name = ? AND ifsc_code = ?`,
		id.AccountNumber, id.HolderName, id.IFSCCode,
	))
	if err != nil {
		return nil, rowErr("find recipient", err)
	}
	return a, nil
}

// UpsertAccountLink points the user's link at bankAccID with a new PIN hash,
// creating the link if the user has none.
func (db *DB) UpsertAccountLink(ctx context.Context, userID, bankAccID int64, pinHash string) error {
	_, err := db.exec(ctx, db.conn,
		`INSERT INTO account_links (user_id, bank_acc_id, pin_hash, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			bank_acc_id = excluded.bank_acc_id,
			pin_hash = excluded.pin_hash,
			updated_at = excluded.updated_at`,
		userID, bankAccID, pinHash, toMicros(time.Now()),
	)
	if err != nil {
		return unavailable("upsert account link", err)
	}
	return nil
}

// GetAccountLink retrieves the user's account link.
func (db *DB) GetAccountLink(ctx context.Context, userID int64) (*models.AccountLink, error) {
	var l models.AccountLink
	var updated int64
	err := db.queryRow(ctx, db.conn,
		"SELECT user_id, bank_acc_id, pin_hash, updated_at FROM account_links WHERE user_id = ?", userID,
	).Scan(&l.UserID, &l.BankAccID, &l.PINHash, &updated)
	if err != nil {
		return nil, rowErr("get account link", err)
	}
	l.UpdatedAt = fromMicros(updated)
	return &l, nil
}

// GetLinkedAccount retrieves the user's link together with the linked bank account.
func (db *DB) GetLinkedAccount(ctx context.Context, userID int64) (*models.LinkedAccount, error) {
	row := db.queryRow(ctx, db.conn,
		`SELECT l.user_id, l.bank_acc_id, l.pin_hash, l.updated_at,
			b.bank_acc_id, b.account_number, b.holder_name, b.bank_name, b.branch_name, b.ifsc_code, b.unique_code, b.balance_minor
		FROM account_links l
		JOIN bank_accounts b ON b.bank_acc_id = l.bank_acc_id
		WHERE l.user_id = ?`, userID)

	var la models.LinkedAccount
	var updated, balance int64
	a := &la.Account
	err := row.Scan(&la.Link.UserID, &la.Link.BankAccID, &la.Link.PINHash, &updated,
		&a.ID, &a.AccountNumber, &a.HolderName, &a.BankName, &a.BranchName, &a.IFSCCode, &a.UniqueCode, &balance)
	if err != nil {
		return nil, rowErr("get linked account", err)
	}
	la.Link.UpdatedAt = fromMicros(updated)
	a.Balance = money.FromMinor(balance)
	return &la, nil
}

// UpdateLinkPIN replaces the PIN hash on the user's link.
func (db *DB) UpdateLinkPIN(ctx context.Context, userID int64, pinHash string) error {
	res, err := db.exec(ctx, db.conn,
		"UPDATE account_links SET pin_hash = ?, updated_at = ? WHERE user_id = ?",
		pinHash, toMicros(time.Now()), userID,
	)
	if err != nil {
		return unavailable("update pin", err)
	}
	return affectedOne(res, "update pin")
}
