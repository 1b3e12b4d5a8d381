package state

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadySettled is returned when a settlement is attempted on an
// auction whose status is already terminal.
var ErrAlreadySettled = errors.New("auction already settled")

// StatusKind enumerates the auction lifecycle states.
type StatusKind uint8

const (
	// StatusNotStarted means no competitive auction ever ran for the order.
	StatusNotStarted StatusKind = iota
	// StatusActive means bidding is in progress (owned by the auction
	// engine, never entered by this service).
	StatusActive
	// StatusCompleted means bidding finished with a best offer.
	StatusCompleted
	// StatusSettled is terminal. Funds have moved and custody has been
	// handed to the custodian.
	StatusSettled
)

func (k StatusKind) String() string {
	switch k {
	case StatusNotStarted:
		return "NotStarted"
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	case StatusSettled:
		return "Settled"
	default:
		return fmt.Sprintf("StatusKind(%d)", uint8(k))
	}
}

// AuctionStatus is the current lifecycle state of an auction. Fee and
// TotalPenalty are only meaningful once Kind is StatusSettled.
// TotalPenalty stays nil on the no-auction path: there was no bid to
// liquidate, so no penalty applies.
type AuctionStatus struct {
	Kind         StatusKind
	Fee          uint64
	TotalPenalty *uint64
}

// preSettlement reports whether settlement may run from this status.
func (s AuctionStatus) preSettlement() bool {
	return s.Kind == StatusNotStarted || s.Kind == StatusCompleted
}

// TargetProtocol tags which delivery mechanism governs downstream
// execution of the fill.
type TargetProtocol uint8

const (
	ProtocolLocal TargetProtocol = iota
	ProtocolCCTP
)

func (p TargetProtocol) String() string {
	switch p {
	case ProtocolLocal:
		return "Local"
	case ProtocolCCTP:
		return "CCTP"
	default:
		return fmt.Sprintf("TargetProtocol(%d)", uint8(p))
	}
}

// Auction is the (possibly empty) auction record for one fast order,
// keyed by the fast VAA digest. The status transition is guarded by an
// internal mutex so that two settlement attempts racing on the same
// record cannot both observe a pre-settlement state.
type Auction struct {
	VAAHash        [32]byte
	TargetProtocol TargetProtocol

	mu     sync.Mutex
	status AuctionStatus
}

// NewAuction creates an auction record in the NotStarted state.
func NewAuction(vaaHash [32]byte, protocol TargetProtocol) *Auction {
	return &Auction{
		VAAHash:        vaaHash,
		TargetProtocol: protocol,
		status:         AuctionStatus{Kind: StatusNotStarted},
	}
}

// Status returns a copy of the current status.
func (a *Auction) Status() AuctionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// BeginSettlement acquires exclusive settlement rights on the auction.
// It fails with ErrAlreadySettled if the auction is not in a
// pre-settlement state. On success the caller holds the auction lock and
// must finish with either Commit (transition to Settled) or Abort (leave
// the status untouched).
func (a *Auction) BeginSettlement() (*SettlementClaim, error) {
	a.mu.Lock()
	if !a.status.preSettlement() {
		kind := a.status.Kind
		a.mu.Unlock()
		if kind == StatusSettled {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("auction in state %s cannot settle", kind)
	}
	return &SettlementClaim{auction: a}, nil
}

// SettlementClaim represents exclusive, in-progress settlement of one
// auction. Exactly one of Commit or Abort must be called.
type SettlementClaim struct {
	auction *Auction
	done    bool
}

// Commit transitions the auction to its terminal Settled state.
func (c *SettlementClaim) Commit(fee uint64, totalPenalty *uint64) {
	if c.done {
		return
	}
	c.done = true
	c.auction.status = AuctionStatus{
		Kind:         StatusSettled,
		Fee:          fee,
		TotalPenalty: totalPenalty,
	}
	c.auction.mu.Unlock()
}

// Abort releases the claim without mutating the auction status.
func (c *SettlementClaim) Abort() {
	if c.done {
		return
	}
	c.done = true
	c.auction.mu.Unlock()
}
