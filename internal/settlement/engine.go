// Package settlement finalizes fast-transfer orders that reached
// settlement without a winning auction bid: it pays the protocol fee,
// hands custody of the remaining escrow to the custodian, transitions
// the auction record, and produces the fill a relayer delivers to the
// destination chain.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/custody"
	"github.com/djb15/example-liquidity-layer/internal/events"
	"github.com/djb15/example-liquidity-layer/internal/messages"
	"github.com/djb15/example-liquidity-layer/internal/state"
)

var (
	// ErrTransferFailed wraps a custody transfer failure. Settlement
	// aborted with no state mutated.
	ErrTransferFailed = errors.New("custody fee transfer failed")
	// ErrAuthorityReassignment wraps a failure to hand the custody
	// account to the custodian. Same abort semantics.
	ErrAuthorityReassignment = errors.New("custody authority reassignment failed")
)

// Engine executes no-auction settlements against a custody ledger.
type Engine struct {
	ledger    custody.Ledger
	programID solana.PublicKey
	custodian solana.PublicKey
	logger    *zap.Logger
}

// NewEngine creates a settlement engine. The custodian authority is
// derived from the matching engine program ID.
func NewEngine(logger *zap.Logger, ledger custody.Ledger, programID solana.PublicKey) (*Engine, error) {
	custodian, err := custody.CustodianAuthority(programID)
	if err != nil {
		return nil, err
	}
	return &Engine{
		ledger:    ledger,
		programID: programID,
		custodian: custodian,
		logger:    logger.With(zap.String("component", "SettlementEngine")),
	}, nil
}

// Custodian returns the derived custodian authority.
func (e *Engine) Custodian() solana.PublicKey {
	return e.custodian
}

// ProgramID returns the matching engine program ID the engine derives
// authorities from.
func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

// SettleNoneRequest is the input bundle both entry points hand to the
// engine.
type SettleNoneRequest struct {
	Order             *state.PreparedOrderResponse
	CustodyAccount    solana.PublicKey
	FeeRecipientToken solana.PublicKey
	Auction           *state.Auction
}

// Settled is the result of one successful settlement.
type Settled struct {
	Fee        uint64
	UserAmount uint64
	Fill       messages.Fill
	Event      events.AuctionSettled
}

// SettleNone settles an order that never had a competitive auction. It
// pays base fee + init auction fee to the fee recipient, reassigns the
// custody account to the custodian, transitions the auction to Settled
// and returns the fill plus the settlement event. Either every step
// takes effect or none does: custody mutations are staged in a ledger
// transaction, and the auction status only moves after that transaction
// commits.
//
// Returns state.ErrAlreadySettled if the auction is not in a
// pre-settlement state; no transfer is attempted in that case.
func (e *Engine) SettleNone(ctx context.Context, req SettleNoneRequest) (*Settled, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claim, err := req.Auction.BeginSettlement()
	if err != nil {
		return nil, err
	}

	auth, _, err := custody.OrderResponseAuthority(e.programID, req.Order.Seeds.FastVAAHash)
	if err != nil {
		claim.Abort()
		return nil, err
	}

	tx := e.ledger.Begin()
	defer tx.Rollback()

	custodyBalance, err := tx.Balance(req.CustodyAccount)
	if err != nil {
		claim.Abort()
		return nil, err
	}
	feeRecipientBalance, err := tx.Balance(req.FeeRecipientToken)
	if err != nil {
		claim.Abort()
		return nil, err
	}

	// Pay the fee recipient the base fee and init auction fee. This keeps
	// the protocol relayer compensated for posting the order VAAs even
	// though no auction ran.
	fee := ComputeFee(req.Order.BaseFee, req.Order.InitAuctionFee)
	if err := tx.Transfer(req.CustodyAccount, req.FeeRecipientToken, fee, auth); err != nil {
		claim.Abort()
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	// Hand the custody account to the custodian. It takes over from here;
	// no value moves in this step.
	if err := tx.SetAuthority(req.CustodyAccount, e.custodian, auth); err != nil {
		claim.Abort()
		return nil, fmt.Errorf("%w: %v", ErrAuthorityReassignment, err)
	}

	if err := tx.Commit(); err != nil {
		claim.Abort()
		return nil, err
	}

	// Custody mutations are durable; the auction transition below cannot
	// fail, so the whole settlement is now committed.
	claim.Commit(fee, nil)

	event := events.AuctionSettled{
		FastVAAHash:    req.Auction.VAAHash,
		BestOfferToken: nil,
		BaseFeeToken: &events.SettledTokenAccountInfo{
			Key:          req.FeeRecipientToken,
			BalanceAfter: saturatingAdd(feeRecipientBalance, fee),
		},
		WithExecute: req.Auction.TargetProtocol,
	}

	// The redeemer message was bounded when the order response was
	// decoded, so it always fits the 32-bit length frame. A violation
	// here is a bug elsewhere, not a recoverable condition.
	redeemerMessage := req.Order.TakeRedeemerMessage()
	if uint64(len(redeemerMessage)) > messages.MaxRedeemerMessageLen {
		panic(fmt.Sprintf("redeemer message of %d bytes escaped the upstream length bound", len(redeemerMessage)))
	}

	settled := &Settled{
		Fee:        fee,
		UserAmount: saturatingSub(custodyBalance, fee),
		Fill: messages.Fill{
			SourceChain:     req.Order.SourceChain,
			OrderSender:     req.Order.Sender,
			Redeemer:        req.Order.Redeemer,
			RedeemerMessage: redeemerMessage,
		},
		Event: event,
	}

	e.logger.Info("Auction settled without bids",
		zap.String("fastVAAHash", fmt.Sprintf("%x", req.Auction.VAAHash)),
		zap.Uint64("fee", fee),
		zap.Uint64("userAmount", settled.UserAmount),
		zap.String("withExecute", req.Auction.TargetProtocol.String()))

	return settled, nil
}
