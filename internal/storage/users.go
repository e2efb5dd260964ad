package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"trackex/internal/models"
)

const userColumns = "id, username, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMicros(created)
	return &u, nil
}

// CreateUser creates a new user. A taken username or email yields ErrConflict.
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	row := db.queryRow(ctx, db.conn,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING `+userColumns,
		username, email, passwordHash, toMicros(time.Now()),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, unavailable("create user", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.queryRow(ctx, db.conn, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, rowErr("get user", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(db.queryRow(ctx, db.conn, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		return nil, rowErr("get user by username", err)
	}
	return u, nil
}

// UpdatePasswordHash replaces a user's password hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	res, err := db.exec(ctx, db.conn, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return unavailable("update password", err)
	}
	return affectedOne(res, "update password")
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := db.queryRow(ctx, db.conn, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, unavailable("count users", err)
	}
	return count, nil
}

// affectedOne returns ErrNotFound when a statement touched no rows.
func affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
