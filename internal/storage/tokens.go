package storage

import (
	"context"
	"time"
)

// IssueToken stores candidate as the user's token unless one already exists,
// and returns whichever token is current for the user.
func (db *DB) IssueToken(ctx context.Context, userID int64, candidate string) (string, error) {
	_, err := db.exec(ctx, db.conn,
		`INSERT INTO user_tokens (token, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		candidate, userID, toMicros(time.Now()),
	)
	if err != nil {
		return "", unavailable("issue token", err)
	}

	var token string
	if err := db.queryRow(ctx, db.conn, "SELECT token FROM user_tokens WHERE user_id = ?", userID).Scan(&token); err != nil {
		return "", rowErr("issue token", err)
	}
	return token, nil
}

// ResolveToken returns the user a token belongs to.
func (db *DB) ResolveToken(ctx context.Context, token string) (int64, error) {
	var userID int64
	if err := db.queryRow(ctx, db.conn, "SELECT user_id FROM user_tokens WHERE token = ?", token).Scan(&userID); err != nil {
		return 0, rowErr("resolve token", err)
	}
	return userID, nil
}

// DeleteToken removes a token. Deleting an unknown token is not an error.
func (db *DB) DeleteToken(ctx context.Context, token string) error {
	if _, err := db.exec(ctx, db.conn, "DELETE FROM user_tokens WHERE token = ?", token); err != nil {
		return unavailable("delete token", err)
	}
	return nil
}
