package internal

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/djb15/example-liquidity-layer/internal/messages"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
	"github.com/djb15/example-liquidity-layer/internal/state"
)

// PendingOrder is a fast market order waiting for its finalized slow
// order response, or a settled order whose fill delivery is still
// outstanding.
type PendingOrder struct {
	Digest         [32]byte
	SourceChain    uint16
	Sequence       uint64
	Order          *messages.FastMarketOrder
	CustodyAccount solana.PublicKey
	AuthorityBump  uint8
	Auction        *state.Auction

	// Settled is set once settlement commits. While the order stays in
	// the registry with Settled non-nil, delivery failed and the fill
	// must be re-routed; the engine is never run a second time.
	Settled *settlement.Settled
}

// OrderRegistry is the in-memory book of orders between the fast VAA
// arriving and settlement completing, keyed by the fast VAA digest.
type OrderRegistry struct {
	mu     sync.Mutex
	orders map[[32]byte]*PendingOrder
}

func NewOrderRegistry() *OrderRegistry {
	return &OrderRegistry{
		orders: make(map[[32]byte]*PendingOrder),
	}
}

// Register adds a pending order. Registering the same digest twice is an
// error; the fast VAA for an order is only processed once.
func (r *OrderRegistry) Register(order *PendingOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.Digest]; ok {
		return fmt.Errorf("order %x already registered", order.Digest)
	}
	r.orders[order.Digest] = order
	return nil
}

// Get looks up a pending order by digest.
func (r *OrderRegistry) Get(digest [32]byte) (*PendingOrder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[digest]
	return order, ok
}

// Remove drops a pending order after settlement.
func (r *OrderRegistry) Remove(digest [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, digest)
}

// Len reports how many orders are pending.
func (r *OrderRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
