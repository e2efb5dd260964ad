package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trackex/internal/apperr"
	"trackex/internal/models"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) createUser(name string) *models.User {
	u, err := suite.db.CreateUser(suite.ctx, name, name+"@example.com", "hash")
	require.NoError(suite.T(), err)
	return u
}

func (suite *DBTestSuite) createAccount(number string, balance string) *models.BankAccount {
	a := &models.BankAccount{
		AccountNumber: number,
		HolderName:    "Holder " + number,
		BankName:      "X Bank",
		BranchName:    "Main",
		IFSCCode:      "XBK0001",
		UniqueCode:    "CODE" + number,
		Balance:       decimal.RequireFromString(balance),
	}
	inserted, err := suite.db.InsertBankAccount(suite.ctx, a)
	require.NoError(suite.T(), err)
	require.True(suite.T(), inserted)
	return a
}

func (suite *DBTestSuite) TestMigrateSeedsCategories() {
	cats, err := suite.db.Categories(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), cats, len(DefaultCategories))

	c, err := suite.db.CategoryByName(suite.ctx, models.TransferCategory)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TransferCategory, c.Name)

	_, err = suite.db.CategoryByName(suite.ctx, "Nope")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateUserConflict() {
	suite.createUser("alice")

	_, err := suite.db.CreateUser(suite.ctx, "alice", "other@example.com", "hash")
	assert.ErrorIs(suite.T(), err, ErrConflict)

	_, err = suite.db.CreateUser(suite.ctx, "other", "alice@example.com", "hash")
	assert.ErrorIs(suite.T(), err, ErrConflict)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestGetUser() {
	u := suite.createUser("bob")

	byID, err := suite.db.GetUserByID(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "bob", byID.Username)

	byName, err := suite.db.GetUserByUsername(suite.ctx, "bob")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), u.ID, byName.ID)

	_, err = suite.db.GetUserByUsername(suite.ctx, "nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.db.UpdatePasswordHash(suite.ctx, u.ID, "new-hash"))
	byID, err = suite.db.GetUserByID(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "new-hash", byID.PasswordHash)

	assert.ErrorIs(suite.T(), suite.db.UpdatePasswordHash(suite.ctx, 999, "x"), ErrNotFound)
}

func (suite *DBTestSuite) TestInsertBankAccountKeepsExisting() {
	a := suite.createAccount("1234567890", "1000")

	dup := *a
	dup.Balance = decimal.RequireFromString("5")
	inserted, err := suite.db.InsertBankAccount(suite.ctx, &dup)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), inserted)

	got, err := suite.db.GetBankAccount(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), decimal.RequireFromString("1000").Equal(got.Balance))
}

func (suite *DBTestSuite) TestFindAccounts() {
	a := suite.createAccount("1234567890", "1000")

	found, err := suite.db.FindBankAccount(suite.ctx, models.AccountIdentity{
		AccountNumber: a.AccountNumber, HolderName: a.HolderName, BankName: a.BankName,
		BranchName: a.BranchName, IFSCCode: a.IFSCCode, UniqueCode: a.UniqueCode,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), a.ID, found.ID)

	_, err = suite.db.FindBankAccount(suite.ctx, models.AccountIdentity{
		AccountNumber: a.AccountNumber, HolderName: a.HolderName, BankName: a.BankName,
		BranchName: a.BranchName, IFSCCode: a.IFSCCode, UniqueCode: "WRONG",
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	r, err := suite.db.FindRecipient(suite.ctx, models.RecipientIdentity{
		AccountNumber: a.AccountNumber, HolderName: a.HolderName, IFSCCode: a.IFSCCode,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), a.ID, r.ID)
}

func (suite *DBTestSuite) TestAccountLinkUpsert() {
	u := suite.createUser("carol")
	a1 := suite.createAccount("1111111111", "10")
	a2 := suite.createAccount("2222222222", "20")

	_, err := suite.db.GetAccountLink(suite.ctx, u.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.db.UpsertAccountLink(suite.ctx, u.ID, a1.ID, "pin-1"))
	require.NoError(suite.T(), suite.db.UpsertAccountLink(suite.ctx, u.ID, a2.ID, "pin-2"))

	link, err := suite.db.GetAccountLink(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), a2.ID, link.BankAccID)
	assert.Equal(suite.T(), "pin-2", link.PINHash)

	la, err := suite.db.GetLinkedAccount(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2222222222", la.Account.AccountNumber)
	assert.True(suite.T(), decimal.RequireFromString("20").Equal(la.Account.Balance))

	require.NoError(suite.T(), suite.db.UpdateLinkPIN(suite.ctx, u.ID, "pin-3"))
	link, err = suite.db.GetAccountLink(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "pin-3", link.PINHash)

	assert.ErrorIs(suite.T(), suite.db.UpdateLinkPIN(suite.ctx, 999, "x"), ErrNotFound)
}

func (suite *DBTestSuite) TestBudgets() {
	u := suite.createUser("dave")
	food, err := suite.db.CategoryByName(suite.ctx, "Food")
	require.NoError(suite.T(), err)

	_, err = suite.db.GetBudget(suite.ctx, u.ID, "Food")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.ErrorIs(suite.T(), suite.db.UpdateBudget(suite.ctx, u.ID, food.ID, decimal.NewFromInt(5)), ErrNotFound)

	require.NoError(suite.T(), suite.db.InsertBudget(suite.ctx, u.ID, food.ID, decimal.RequireFromString("2500.50")))
	assert.ErrorIs(suite.T(), suite.db.InsertBudget(suite.ctx, u.ID, food.ID, decimal.NewFromInt(1)), ErrConflict)

	b, err := suite.db.GetBudget(suite.ctx, u.ID, "Food")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2500.5", b.Ceiling.String())

	require.NoError(suite.T(), suite.db.UpdateBudget(suite.ctx, u.ID, food.ID, decimal.NewFromInt(3000)))
	list, err := suite.db.ListBudgets(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), "3000", list[0].Ceiling.String())
}

func (suite *DBTestSuite) TestWithTxRollsBack() {
	a := suite.createAccount("3333333333", "100")
	boom := errors.New("boom")

	err := suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		require.NoError(suite.T(), tx.Debit(suite.ctx, a.ID, 4000))
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)

	got, err := suite.db.GetBankAccount(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "100", got.Balance.String())
}

func (suite *DBTestSuite) TestTxDebitGuard() {
	a := suite.createAccount("4444444444", "10")

	err := suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		require.NoError(suite.T(), tx.LockAccounts(suite.ctx, a.ID))
		return tx.Debit(suite.ctx, a.ID, 1001)
	})
	assert.ErrorIs(suite.T(), err, ErrInsufficientFunds)

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		return tx.Credit(suite.ctx, 9999, 1)
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestTxLockAccountsRequiresEveryID() {
	a := suite.createAccount("5555555555", "10")
	b := suite.createAccount("6666666666", "10")

	tests := []struct {
		name    string
		ids     []int64
		wantErr error
	}{
		{"all present", []int64{b.ID, a.ID}, nil},
		{"repeated id", []int64{a.ID, a.ID}, nil},
		{"none", nil, nil},
		{"one missing", []int64{a.ID, 9999}, ErrNotFound},
		{"all missing", []int64{9998, 9999}, ErrNotFound},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := suite.db.WithTx(suite.ctx, func(tx *Tx) error {
				return tx.LockAccounts(suite.ctx, tt.ids...)
			})
			if tt.wantErr == nil {
				assert.NoError(suite.T(), err)
			} else {
				assert.ErrorIs(suite.T(), err, tt.wantErr)
			}
		})
	}
}

func (suite *DBTestSuite) TestTxAccountLink() {
	u, err := suite.db.CreateUser(suite.ctx, "linker", "linker@example.com", "hash")
	require.NoError(suite.T(), err)
	a := suite.createAccount("7777777777", "10")

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		_, err := tx.AccountLink(suite.ctx, u.ID)
		return err
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.db.UpsertAccountLink(suite.ctx, u.ID, a.ID, "pin-hash"))
	var got *models.AccountLink
	require.NoError(suite.T(), suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		var err error
		got, err = tx.AccountLink(suite.ctx, u.ID)
		return err
	}))
	assert.Equal(suite.T(), a.ID, got.BankAccID)
	assert.Equal(suite.T(), "pin-hash", got.PINHash)
}

func (suite *DBTestSuite) TestStoreUnavailableAfterClose() {
	suite.db.Close()
	_, err := suite.db.GetUserByID(suite.ctx, 1)
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, apperr.ErrStoreUnavailable)
	suite.db = nil
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

// TokenTestSuite tests token storage
type TokenTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

func (suite *TokenTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()

	suite.user, err = db.CreateUser(suite.ctx, "tokenuser", "token@example.com", "hash")
	require.NoError(suite.T(), err)
}

func (suite *TokenTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *TokenTestSuite) TestIssueReturnsExisting() {
	first, err := suite.db.IssueToken(suite.ctx, suite.user.ID, "token-a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "token-a", first)

	second, err := suite.db.IssueToken(suite.ctx, suite.user.ID, "token-b")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "token-a", second)
}

func (suite *TokenTestSuite) TestResolveAndDelete() {
	_, err := suite.db.IssueToken(suite.ctx, suite.user.ID, "token-a")
	require.NoError(suite.T(), err)

	id, err := suite.db.ResolveToken(suite.ctx, "token-a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, id)

	require.NoError(suite.T(), suite.db.DeleteToken(suite.ctx, "token-a"))
	require.NoError(suite.T(), suite.db.DeleteToken(suite.ctx, "token-a"), "delete is idempotent")

	_, err = suite.db.ResolveToken(suite.ctx, "token-a")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *TokenTestSuite) TestConcurrentIssueConverges() {
	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := suite.db.IssueToken(suite.ctx, suite.user.ID, "candidate-"+string(rune('a'+i)))
			assert.NoError(suite.T(), err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(suite.T(), tokens[0], tok)
	}
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenTestSuite))
}

// LedgerTestSuite tests ledger storage and filtering
type LedgerTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
	cats map[string]int64
}

func (suite *LedgerTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()

	suite.user, err = db.CreateUser(suite.ctx, "ledger", "ledger@example.com", "hash")
	require.NoError(suite.T(), err)

	cats, err := db.Categories(suite.ctx)
	require.NoError(suite.T(), err)
	suite.cats = map[string]int64{}
	for _, c := range cats {
		suite.cats[c.Name] = c.ID
	}
}

func (suite *LedgerTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *LedgerTestSuite) add(category, amount string, at time.Time) *models.LedgerEntry {
	e := &models.LedgerEntry{
		UserID:        suite.user.ID,
		CategoryID:    suite.cats[category],
		Amount:        decimal.RequireFromString(amount),
		OccurredAt:    at,
		PaymentMethod: "Cash",
		Description:   category + " " + amount,
	}
	require.NoError(suite.T(), suite.db.CreateLedgerEntry(suite.ctx, e))
	return e
}

func (suite *LedgerTestSuite) TestListOrderAndTies() {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	first := suite.add("Food", "10", base)
	second := suite.add("Food", "20", base)
	latest := suite.add("Travel", "30", base.Add(time.Hour))

	entries, err := suite.db.ListLedgerEntries(suite.ctx, LedgerFilter{UserID: suite.user.ID})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, 3)
	assert.Equal(suite.T(), latest.ID, entries[0].ID)
	assert.Equal(suite.T(), second.ID, entries[1].ID, "same timestamp breaks ties by id descending")
	assert.Equal(suite.T(), first.ID, entries[2].ID)
	assert.Equal(suite.T(), "Travel", entries[0].Category)
	assert.True(suite.T(), base.Add(time.Hour).Equal(entries[0].OccurredAt))
}

func (suite *LedgerTestSuite) TestFilters() {
	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	suite.add("Food", "10", march)
	suite.add("Travel", "30", march)
	suite.add("Food", "5.25", april)

	food, err := suite.db.ListLedgerEntries(suite.ctx, LedgerFilter{UserID: suite.user.ID, Category: "Food"})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), food, 2)

	inMarch := LedgerFilter{
		UserID: suite.user.ID,
		From:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Until:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	entries, err := suite.db.ListLedgerEntries(suite.ctx, inMarch)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), entries, 2)

	total, err := suite.db.SumLedgerEntries(suite.ctx, inMarch)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "40", total.String())

	inMarch.Category = "Food"
	total, err = suite.db.SumLedgerEntries(suite.ctx, inMarch)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "10", total.String())

	empty, err := suite.db.SumLedgerEntries(suite.ctx, LedgerFilter{UserID: suite.user.ID, Category: "Health"})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), empty.IsZero())

	limited, err := suite.db.ListLedgerEntries(suite.ctx, LedgerFilter{UserID: suite.user.ID, Limit: 1})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), limited, 1)
	assert.Equal(suite.T(), "5.25", limited[0].Amount.String())
}

func (suite *LedgerTestSuite) TestCategoryTotals() {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	suite.add("Food", "10", at)
	suite.add("Food", "15.50", at)
	suite.add("Travel", "40", at)

	totals, err := suite.db.CategoryTotals(suite.ctx, LedgerFilter{UserID: suite.user.ID})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 2)
	assert.Equal(suite.T(), "Travel", totals[0].Category)
	assert.Equal(suite.T(), "40", totals[0].Total.String())
	assert.Equal(suite.T(), 1, totals[0].Count)
	assert.Equal(suite.T(), "Food", totals[1].Category)
	assert.Equal(suite.T(), "25.5", totals[1].Total.String())
	assert.Equal(suite.T(), 2, totals[1].Count)

	none, err := suite.db.CategoryTotals(suite.ctx, LedgerFilter{UserID: suite.user.ID + 1})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), none)
}

func (suite *LedgerTestSuite) TestFilterValuesAreParameters() {
	suite.add("Food", "10", time.Now())

	entries, err := suite.db.ListLedgerEntries(suite.ctx, LedgerFilter{UserID: suite.user.ID, Category: "Food' OR '1'='1"})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), entries)
}

func (suite *LedgerTestSuite) TestDeleteScopedToOwner() {
	e := suite.add("Food", "10", time.Now())
	other, err := suite.db.CreateUser(suite.ctx, "other", "other@example.com", "hash")
	require.NoError(suite.T(), err)

	assert.ErrorIs(suite.T(), suite.db.DeleteLedgerEntry(suite.ctx, other.ID, e.ID), ErrNotFound)
	require.NoError(suite.T(), suite.db.DeleteLedgerEntry(suite.ctx, suite.user.ID, e.ID))
	assert.ErrorIs(suite.T(), suite.db.DeleteLedgerEntry(suite.ctx, suite.user.ID, e.ID), ErrNotFound)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

// PaymentTestSuite tests payment storage
type PaymentTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

func (suite *PaymentTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
	suite.user, err = db.CreateUser(suite.ctx, "payer", "payer@example.com", "hash")
	require.NoError(suite.T(), err)
}

func (suite *PaymentTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *PaymentTestSuite) TestLifecycle() {
	other, err := suite.db.CategoryByName(suite.ctx, "Other")
	require.NoError(suite.T(), err)

	p := &models.Payment{
		UserID:     suite.user.ID,
		OrderID:    "order_1",
		Amount:     decimal.RequireFromString("499.99"),
		Currency:   "INR",
		CategoryID: other.ID,
		Status:     models.PaymentInitiated,
	}
	require.NoError(suite.T(), suite.db.CreatePayment(suite.ctx, p))
	assert.NotZero(suite.T(), p.ID)

	dup := *p
	assert.ErrorIs(suite.T(), suite.db.CreatePayment(suite.ctx, &dup), ErrConflict)

	var changed bool
	require.NoError(suite.T(), suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		var err error
		changed, err = tx.MarkPaymentSuccessful(suite.ctx, suite.user.ID, "order_1", "pay_1", "upi")
		return err
	}))
	assert.True(suite.T(), changed)

	require.NoError(suite.T(), suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		var err error
		changed, err = tx.MarkPaymentSuccessful(suite.ctx, suite.user.ID, "order_1", "pay_1", "upi")
		return err
	}))
	assert.False(suite.T(), changed, "second success is a no-op")

	require.NoError(suite.T(), suite.db.MarkPaymentFailed(suite.ctx, suite.user.ID, "order_1", "pay_2"))
	got, err := suite.db.GetPaymentByOrder(suite.ctx, suite.user.ID, "order_1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PaymentSuccessful, got.Status, "successful payments are never failed")
	assert.Equal(suite.T(), "Other", got.Category)
	assert.Equal(suite.T(), "499.99", got.Amount.String())

	list, err := suite.db.ListPayments(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)

	_, err = suite.db.GetPaymentByOrder(suite.ctx, suite.user.ID+1, "order_1")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func TestPaymentSuite(t *testing.T) {
	suite.Run(t, new(PaymentTestSuite))
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT 1 WHERE a = ? AND b = ?", sqliteDialect.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", postgresDialect.rebind("SELECT 1 WHERE a = ? AND b = ?"))
}

func TestLedgerFilterWhere(t *testing.T) {
	where, args := LedgerFilter{UserID: 7}.where()
	assert.Equal(t, "e.user_id = ?", where)
	assert.Equal(t, []any{int64(7)}, args)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args = LedgerFilter{UserID: 7, From: from, Category: "Food"}.where()
	assert.Equal(t, "e.user_id = ? AND e.occurred_at >= ? AND c.name = ?", where)
	assert.Equal(t, []any{int64(7), from.UnixMicro(), "Food"}, args)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
