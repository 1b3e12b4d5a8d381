package custody

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type tokenAccount struct {
	balance   uint64
	authority solana.PublicKey
}

// MemoryLedger is an in-process Ledger. A transaction copies the touched
// accounts, mutates the copies, and writes them back on Commit while
// holding the ledger lock for the whole transaction, which gives the
// exclusive-write guarantee settlement relies on.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*tokenAccount
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[solana.PublicKey]*tokenAccount),
	}
}

// CreateAccount registers a custody account with an initial balance and
// controlling authority. Overwrites nothing; creating the same account
// twice is an error.
func (l *MemoryLedger) CreateAccount(account, authority solana.PublicKey, balance uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[account]; ok {
		return fmt.Errorf("custody account %s already exists", account)
	}
	l.accounts[account] = &tokenAccount{balance: balance, authority: authority}
	return nil
}

// Balance reads an account balance outside any transaction.
func (l *MemoryLedger) Balance(account solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[account]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	return acct.balance, nil
}

// Authority reads an account's controlling authority outside any
// transaction.
func (l *MemoryLedger) Authority(account solana.PublicKey) (solana.PublicKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[account]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	return acct.authority, nil
}

// Begin opens a transaction. The ledger lock is held until Commit or
// Rollback.
func (l *MemoryLedger) Begin() Tx {
	l.mu.Lock()
	return &memoryTx{
		ledger: l,
		staged: make(map[solana.PublicKey]*tokenAccount),
	}
}

type memoryTx struct {
	ledger *MemoryLedger
	staged map[solana.PublicKey]*tokenAccount
	closed bool
}

// view returns the staged copy of an account, creating it from the
// committed state on first touch.
func (tx *memoryTx) view(account solana.PublicKey) (*tokenAccount, error) {
	if acct, ok := tx.staged[account]; ok {
		return acct, nil
	}
	committed, ok := tx.ledger.accounts[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	copied := *committed
	tx.staged[account] = &copied
	return &copied, nil
}

func (tx *memoryTx) Balance(account solana.PublicKey) (uint64, error) {
	acct, err := tx.view(account)
	if err != nil {
		return 0, err
	}
	return acct.balance, nil
}

func (tx *memoryTx) Transfer(from, to solana.PublicKey, amount uint64, auth Authorization) error {
	src, err := tx.view(from)
	if err != nil {
		return err
	}
	if !src.authority.Equals(auth.Authority) {
		return fmt.Errorf("%w: account %s", ErrAuthorityMismatch, from)
	}
	if src.balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, src.balance, amount)
	}
	dst, err := tx.view(to)
	if err != nil {
		return err
	}
	src.balance -= amount
	sum, carry := bits.Add64(dst.balance, amount, 0)
	if carry != 0 {
		src.balance += amount
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
	}
	dst.balance = sum
	return nil
}

func (tx *memoryTx) SetAuthority(account solana.PublicKey, newAuthority solana.PublicKey, auth Authorization) error {
	acct, err := tx.view(account)
	if err != nil {
		return err
	}
	if !acct.authority.Equals(auth.Authority) {
		return fmt.Errorf("%w: account %s", ErrAuthorityMismatch, account)
	}
	acct.authority = newAuthority
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.closed {
		return fmt.Errorf("custody transaction already closed")
	}
	for key, acct := range tx.staged {
		tx.ledger.accounts[key] = acct
	}
	tx.closed = true
	tx.ledger.mu.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() {
	if tx.closed {
		return
	}
	tx.staged = nil
	tx.closed = true
	tx.ledger.mu.Unlock()
}
