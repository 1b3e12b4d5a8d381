package custody

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrUnknownAccount is returned for operations on accounts the
	// ledger has never seen.
	ErrUnknownAccount = errors.New("unknown custody account")
	// ErrInsufficientBalance is returned when a transfer exceeds the
	// source account balance.
	ErrInsufficientBalance = errors.New("insufficient custody balance")
	// ErrAuthorityMismatch is returned when the presented authorization
	// does not control the account.
	ErrAuthorityMismatch = errors.New("authority mismatch")
	// ErrBalanceOverflow is returned when a transfer would push the
	// destination balance past the u64 range.
	ErrBalanceOverflow = errors.New("custody balance overflow")
)

// Authorization is an explicit capability over a custody account. Ledger
// operations succeed only when the presented authority equals the
// account's current controlling authority. This replaces the ambient
// signer-seeds authority of the on-chain program with a value the caller
// must hold and pass.
type Authorization struct {
	Authority solana.PublicKey
}

// Tx is one atomic batch of custody operations. Every mutation is staged
// until Commit; Rollback discards all of them. Implementations must hold
// exclusive write access to the touched accounts between Begin and
// Commit/Rollback.
type Tx interface {
	// Balance reads the staged balance of an account.
	Balance(account solana.PublicKey) (uint64, error)

	// Transfer moves amount from one account to another. Fails with
	// ErrInsufficientBalance or ErrAuthorityMismatch, leaving the stage
	// untouched.
	Transfer(from, to solana.PublicKey, amount uint64, auth Authorization) error

	// SetAuthority reassigns who may authorize future operations on the
	// account. No value moves.
	SetAuthority(account solana.PublicKey, newAuthority solana.PublicKey, auth Authorization) error

	// Commit applies all staged mutations as one unit.
	Commit() error

	// Rollback discards all staged mutations. Safe to call after Commit;
	// it then does nothing.
	Rollback()
}

// Ledger hands out atomic transaction scopes over custody accounts.
type Ledger interface {
	Begin() Tx
}
