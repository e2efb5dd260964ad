package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trackex/internal/apperr"
	"trackex/internal/auth"
	"trackex/internal/models"
	"trackex/internal/storage"
)

type RegistryTestSuite struct {
	suite.Suite
	db     *storage.DB
	reg    *Registry
	ctx    context.Context
	userID int64
	alice  models.AccountIdentity
}

func (suite *RegistryTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.reg = New(db)
	suite.ctx = context.Background()

	u, err := db.CreateUser(suite.ctx, "alice", "alice@example.com", "hash")
	require.NoError(suite.T(), err)
	suite.userID = u.ID

	suite.alice = models.AccountIdentity{
		AccountNumber: "1234567890",
		HolderName:    "Alice",
		BankName:      "X Bank",
		BranchName:    "Main",
		IFSCCode:      "XBK0001",
		UniqueCode:    "ABC123",
	}
	suite.seed(suite.alice, "1000")
}

func (suite *RegistryTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *RegistryTestSuite) seed(id models.AccountIdentity, balance string) {
	_, err := suite.db.InsertBankAccount(suite.ctx, &models.BankAccount{
		AccountNumber: id.AccountNumber,
		HolderName:    id.HolderName,
		BankName:      id.BankName,
		BranchName:    id.BranchName,
		IFSCCode:      id.IFSCCode,
		UniqueCode:    id.UniqueCode,
		Balance:       decimal.RequireFromString(balance),
	})
	require.NoError(suite.T(), err)
}

func (suite *RegistryTestSuite) TestLinkAndMask() {
	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))

	view, err := suite.reg.Masked(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "xxxxxx7890", view.AccountNumber)
	assert.Equal(suite.T(), "1000", view.Balance.String())
}

func (suite *RegistryTestSuite) TestPINIsNotStoredInPlainForm() {
	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))

	link, err := suite.db.GetAccountLink(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), "1234", link.PINHash)
	assert.True(suite.T(), auth.CheckPIN("1234", link.PINHash))
}

func (suite *RegistryTestSuite) TestLinkMismatchDoesNotRevealField() {
	for _, mutate := range []func(*models.AccountIdentity){
		func(id *models.AccountIdentity) { id.UniqueCode = "WRONG" },
		func(id *models.AccountIdentity) { id.HolderName = "Mallory" },
		func(id *models.AccountIdentity) { id.IFSCCode = "XBK9999" },
	} {
		id := suite.alice
		mutate(&id)
		err := suite.reg.LinkAccount(suite.ctx, suite.userID, id, "1234")
		assert.Equal(suite.T(), apperr.ErrNoMatchingAccount, err)
	}

	_, err := suite.reg.Masked(suite.ctx, suite.userID)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotLinked)
}

func (suite *RegistryTestSuite) TestLinkValidation() {
	id := suite.alice
	id.BranchName = " "
	err := suite.reg.LinkAccount(suite.ctx, suite.userID, id, "1234")
	assert.Equal(suite.T(), "branch_name", apperr.As(err).Field)

	err = suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "12ab")
	assert.Equal(suite.T(), "pin", apperr.As(err).Field)
}

func (suite *RegistryTestSuite) TestRelinkReplacesBindingAndPIN() {
	bob := models.AccountIdentity{
		AccountNumber: "5555000011", HolderName: "Alice", BankName: "Y Bank",
		BranchName: "East", IFSCCode: "YBK0002", UniqueCode: "XYZ789",
	}
	suite.seed(bob, "50")

	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))
	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, bob, "9999"))

	_, err := suite.reg.VerifyPIN(suite.ctx, suite.userID, "1234")
	assert.ErrorIs(suite.T(), err, apperr.ErrWrongPin)

	balance, err := suite.reg.VerifyPIN(suite.ctx, suite.userID, "9999")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "50", balance.String())
}

func (suite *RegistryTestSuite) TestVerifyPINGate() {
	_, err := suite.reg.VerifyPIN(suite.ctx, suite.userID, "1234")
	assert.ErrorIs(suite.T(), err, apperr.ErrNotLinked)

	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))

	balance, err := suite.reg.VerifyPIN(suite.ctx, suite.userID, "0000")
	assert.ErrorIs(suite.T(), err, apperr.ErrWrongPin)
	assert.True(suite.T(), balance.IsZero(), "wrong PIN never returns a balance")

	balance, err = suite.reg.VerifyPIN(suite.ctx, suite.userID, "1234")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1000", balance.String())
}

func (suite *RegistryTestSuite) TestChangePIN() {
	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))

	err := suite.reg.ChangePIN(suite.ctx, suite.userID, ChangePINRequest{OldPIN: "1234", NewPIN: "5678", ConfirmPIN: "5679"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPinMismatch)

	err = suite.reg.ChangePIN(suite.ctx, suite.userID, ChangePINRequest{OldPIN: "0000", NewPIN: "5678", ConfirmPIN: "5678"})
	assert.ErrorIs(suite.T(), err, apperr.ErrOldPinIncorrect)

	require.NoError(suite.T(), suite.reg.ChangePIN(suite.ctx, suite.userID, ChangePINRequest{OldPIN: "1234", NewPIN: "5678", ConfirmPIN: "5678"}))

	_, err = suite.reg.VerifyPIN(suite.ctx, suite.userID, "1234")
	assert.ErrorIs(suite.T(), err, apperr.ErrWrongPin)
	_, err = suite.reg.VerifyPIN(suite.ctx, suite.userID, "5678")
	assert.NoError(suite.T(), err)
}

func (suite *RegistryTestSuite) TestChangePINWithoutLink() {
	err := suite.reg.ChangePIN(suite.ctx, suite.userID, ChangePINRequest{OldPIN: "1234", NewPIN: "5678", ConfirmPIN: "5678"})
	assert.ErrorIs(suite.T(), err, apperr.ErrNotLinked)
}

func (suite *RegistryTestSuite) TestProfile() {
	_, err := suite.reg.Profile(suite.ctx, suite.userID)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotLinked)

	require.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, "1234"))
	p, err := suite.reg.Profile(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice", p.HolderName)
	assert.Equal(suite.T(), "1234567890", p.AccountNumber)
}

func (suite *RegistryTestSuite) TestConcurrentRelinksLeaveOneBinding() {
	var wg sync.WaitGroup
	for _, pin := range []string{"1111", "2222", "3333", "4444"} {
		wg.Add(1)
		go func(pin string) {
			defer wg.Done()
			assert.NoError(suite.T(), suite.reg.LinkAccount(suite.ctx, suite.userID, suite.alice, pin))
		}(pin)
	}
	wg.Wait()

	matches := 0
	for _, pin := range []string{"1111", "2222", "3333", "4444"} {
		if _, err := suite.reg.VerifyPIN(suite.ctx, suite.userID, pin); err == nil {
			matches++
		}
	}
	assert.Equal(suite.T(), 1, matches)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "xxxxxx7890", MaskAccountNumber("1234567890"))
	assert.Equal(t, "x2345", MaskAccountNumber("12345"))
	assert.Equal(t, "1234", MaskAccountNumber("1234"))
	assert.Equal(t, "", MaskAccountNumber(""))
}
