// Package events defines the audit records emitted by the settlement
// engine. Persistence is the caller's concern.
package events

import (
	"github.com/djb15/example-liquidity-layer/internal/state"
	"github.com/gagliardetto/solana-go"
)

// SettledTokenAccountInfo records a token account touched by settlement
// and its balance after the touch.
type SettledTokenAccountInfo struct {
	Key          solana.PublicKey
	BalanceAfter uint64
}

// AuctionSettled is emitted once per settled auction. On the no-auction
// path BestOfferToken stays nil since no winning bid exists.
type AuctionSettled struct {
	FastVAAHash    [32]byte
	BestOfferToken *SettledTokenAccountInfo
	BaseFeeToken   *SettledTokenAccountInfo
	WithExecute    state.TargetProtocol
}
