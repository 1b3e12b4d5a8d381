package custody

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccounts() (owner Authorization, escrow, recipient solana.PublicKey) {
	ownerKey := solana.NewWallet().PublicKey()
	return Authorization{Authority: ownerKey},
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey()
}

func TestMemoryLedgerTransfer(t *testing.T) {
	owner, escrow, recipient := newAccounts()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 100))
	require.NoError(t, ledger.CreateAccount(recipient, recipient, 5))

	tx := ledger.Begin()
	require.NoError(t, tx.Transfer(escrow, recipient, 40, owner))
	require.NoError(t, tx.Commit())

	balance, err := ledger.Balance(escrow)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), balance)

	balance, err = ledger.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), balance)
}

func TestMemoryLedgerTransferInsufficient(t *testing.T) {
	owner, escrow, recipient := newAccounts()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 10))
	require.NoError(t, ledger.CreateAccount(recipient, recipient, 0))

	tx := ledger.Begin()
	err := tx.Transfer(escrow, recipient, 15, owner)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	tx.Rollback()

	balance, err := ledger.Balance(escrow)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance)
}

func TestMemoryLedgerTransferOverflow(t *testing.T) {
	owner, escrow, recipient := newAccounts()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 100))
	require.NoError(t, ledger.CreateAccount(recipient, recipient, math.MaxUint64-10))

	tx := ledger.Begin()
	err := tx.Transfer(escrow, recipient, 11, owner)
	assert.ErrorIs(t, err, ErrBalanceOverflow)

	// The failed transfer left the stage untouched.
	balance, err := tx.Balance(escrow)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
	balance, err = tx.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-10), balance)

	// An amount that exactly fills the destination still goes through.
	require.NoError(t, tx.Transfer(escrow, recipient, 10, owner))
	require.NoError(t, tx.Commit())

	balance, err = ledger.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), balance)
}

func TestMemoryLedgerAuthorityChecks(t *testing.T) {
	owner, escrow, recipient := newAccounts()
	stranger := Authorization{Authority: solana.NewWallet().PublicKey()}

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 100))
	require.NoError(t, ledger.CreateAccount(recipient, recipient, 0))

	tx := ledger.Begin()
	assert.ErrorIs(t, tx.Transfer(escrow, recipient, 1, stranger), ErrAuthorityMismatch)
	assert.ErrorIs(t, tx.SetAuthority(escrow, stranger.Authority, stranger), ErrAuthorityMismatch)
	tx.Rollback()
}

func TestMemoryLedgerSetAuthority(t *testing.T) {
	owner, escrow, _ := newAccounts()
	custodian := solana.NewWallet().PublicKey()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 100))

	tx := ledger.Begin()
	require.NoError(t, tx.SetAuthority(escrow, custodian, owner))
	require.NoError(t, tx.Commit())

	authority, err := ledger.Authority(escrow)
	require.NoError(t, err)
	assert.True(t, authority.Equals(custodian))

	// The old authority lost control.
	tx = ledger.Begin()
	assert.ErrorIs(t, tx.SetAuthority(escrow, owner.Authority, owner), ErrAuthorityMismatch)
	tx.Rollback()
}

func TestMemoryLedgerRollbackDiscardsStage(t *testing.T) {
	owner, escrow, recipient := newAccounts()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 100))
	require.NoError(t, ledger.CreateAccount(recipient, recipient, 0))

	tx := ledger.Begin()
	require.NoError(t, tx.Transfer(escrow, recipient, 40, owner))
	require.NoError(t, tx.SetAuthority(escrow, recipient, owner))
	tx.Rollback()

	balance, err := ledger.Balance(escrow)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	authority, err := ledger.Authority(escrow)
	require.NoError(t, err)
	assert.True(t, authority.Equals(owner.Authority))
}

func TestMemoryLedgerUnknownAccount(t *testing.T) {
	ledger := NewMemoryLedger()

	_, err := ledger.Balance(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrUnknownAccount)

	tx := ledger.Begin()
	_, err = tx.Balance(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrUnknownAccount)
	tx.Rollback()
}

func TestMemoryLedgerDuplicateCreate(t *testing.T) {
	owner, escrow, _ := newAccounts()

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(escrow, owner.Authority, 1))
	assert.Error(t, ledger.CreateAccount(escrow, owner.Authority, 1))
}
