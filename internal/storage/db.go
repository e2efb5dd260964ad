package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trackex/internal/models"

	// Import database drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

type dialect struct {
	name      string
	autoID    string
	forUpdate string
	numbered  bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", autoID: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{name: "postgres", autoID: "BIGSERIAL PRIMARY KEY", forUpdate: " FOR UPDATE", numbered: true}
)

// rebind rewrites ? placeholders to $n for drivers that need it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	return Open(context.Background(), "sqlite", path)
}

// Open opens a database for the given driver ("sqlite" or "postgres") and runs migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var d dialect
	switch driver {
	case "sqlite":
		d = sqliteDialect
	case "postgres":
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if d.name == "sqlite" {
		// One writer at a time; also keeps ":memory:" databases on a single connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Driver returns the name of the underlying driver.
func (db *DB) Driver() string {
	return db.dialect.name
}

// DefaultCategories is the catalog seeded on every migration.
var DefaultCategories = []string{
	"Food",
	"Groceries",
	"Shopping",
	"Travel",
	"Entertainment",
	"Bills",
	"Health",
	"Education",
	"Other",
	models.TransferCategory,
}

func (db *DB) migrate(ctx context.Context) error {
	id := db.dialect.autoID
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + id + `,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_tokens (
			token TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bank_accounts (
			bank_acc_id ` + id + `,
			account_number TEXT NOT NULL,
			holder_name TEXT NOT NULL,
			bank_name TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			ifsc_code TEXT NOT NULL,
			unique_code TEXT NOT NULL,
			balance_minor BIGINT NOT NULL DEFAULT 0 CHECK (balance_minor >= 0),
			UNIQUE (account_number, ifsc_code)
		)`,
		`CREATE TABLE IF NOT EXISTS account_links (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			bank_acc_id BIGINT NOT NULL REFERENCES bank_accounts(bank_acc_id),
			pin_hash TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			category_id ` + id + `,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id ` + id + `,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id BIGINT NOT NULL REFERENCES categories(category_id),
			amount_minor BIGINT NOT NULL CHECK (amount_minor > 0),
			occurred_at BIGINT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_time
			ON ledger_entries (user_id, occurred_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id BIGINT NOT NULL REFERENCES categories(category_id),
			ceiling_minor BIGINT NOT NULL CHECK (ceiling_minor >= 0),
			PRIMARY KEY (user_id, category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id ` + id + `,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			order_id TEXT UNIQUE NOT NULL,
			payment_id TEXT NOT NULL DEFAULT '',
			amount_minor BIGINT NOT NULL CHECK (amount_minor > 0),
			currency TEXT NOT NULL,
			category_id BIGINT NOT NULL REFERENCES categories(category_id),
			status TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	}

	if db.dialect.name == "sqlite" {
		if _, err := db.conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return err
		}
	}

	for _, name := range DefaultCategories {
		if _, err := db.exec(ctx, db.conn, `INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (db *DB) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, db.dialect.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, db.dialect.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, db.dialect.rebind(query), args...)
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
