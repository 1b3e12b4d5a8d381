package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/custody"
	"github.com/djb15/example-liquidity-layer/internal/messages"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
	"github.com/djb15/example-liquidity-layer/internal/state"
	"github.com/djb15/example-liquidity-layer/internal/store"
)

type stubRouter struct {
	calls    int
	failures int // fail this many calls before succeeding
	settled  *settlement.Settled
}

func (r *stubRouter) RouteFill(ctx context.Context, settled *settlement.Settled, digest [32]byte) (string, error) {
	r.calls++
	r.settled = settled
	if r.failures > 0 {
		r.failures--
		return "", errors.New("rpc node unavailable")
	}
	return "route-tx-hash", nil
}

type processorFixture struct {
	processor    *SettlementProcessor
	ledger       *custody.MemoryLedger
	registry     *OrderRegistry
	store        *store.Store
	router       *stubRouter
	programID    solana.PublicKey
	feeRecipient solana.PublicKey
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()

	programID := solana.NewWallet().PublicKey()
	feeRecipient := solana.NewWallet().PublicKey()

	ledger := custody.NewMemoryLedger()
	require.NoError(t, ledger.CreateAccount(feeRecipient, feeRecipient, 0))

	engine, err := settlement.NewEngine(zap.NewNop(), ledger, programID)
	require.NoError(t, err)

	auditStore, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { auditStore.Close() })

	registry := NewOrderRegistry()
	fillRouter := &stubRouter{}

	processor := NewSettlementProcessor(zap.NewNop(),
		OrderProcessorConfig{
			ChainIDs:          []uint16{2},
			TargetProtocol:    state.ProtocolLocal,
			FeeRecipientToken: feeRecipient,
		},
		ledger, engine, registry, auditStore, fillRouter)

	return &processorFixture{
		processor:    processor,
		ledger:       ledger,
		registry:     registry,
		store:        auditStore,
		router:       fillRouter,
		programID:    programID,
		feeRecipient: feeRecipient,
	}
}

func fastOrderVAA(t *testing.T, digest [32]byte, amountIn, initAuctionFee uint64) VAAData {
	t.Helper()
	order := &messages.FastMarketOrder{
		AmountIn:        amountIn,
		MinAmountOut:    amountIn,
		TargetChain:     1,
		Redeemer:        [32]byte{0x22},
		Sender:          [32]byte{0x11},
		InitAuctionFee:  initAuctionFee,
		RedeemerMessage: []byte("to the vault"),
	}
	payload, err := order.Encode()
	require.NoError(t, err)

	return VAAData{
		VAA:      &vaaLib.VAA{Payload: payload},
		Digest:   digest,
		ChainID:  2,
		Sequence: 1,
	}
}

func slowResponseVAA(t *testing.T, digest [32]byte, baseFee uint64) VAAData {
	t.Helper()
	resp := &messages.SlowOrderResponse{FastVAAHash: digest, BaseFee: baseFee}
	return VAAData{
		VAA:      &vaaLib.VAA{Payload: resp.Encode()},
		Digest:   [32]byte{0xee},
		ChainID:  2,
		Sequence: 2,
	}
}

func TestProcessorSettlesOrder(t *testing.T) {
	f := newProcessorFixture(t)
	digest := [32]byte{0x01, 0x02}

	// Fast market order escrows the funds and registers the order.
	_, err := f.processor.ProcessVAA(context.Background(), fastOrderVAA(t, digest, 1000, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, f.registry.Len())

	custodyAccount, err := custody.PreparedCustodyAccount(f.programID, digest)
	require.NoError(t, err)
	balance, err := f.ledger.Balance(custodyAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)

	// Slow order response settles and routes the fill.
	txHash, err := f.processor.ProcessVAA(context.Background(), slowResponseVAA(t, digest, 10))
	require.NoError(t, err)
	assert.Equal(t, "route-tx-hash", txHash)

	assert.Equal(t, 1, f.router.calls)
	assert.Equal(t, uint64(15), f.router.settled.Fee)
	assert.Equal(t, uint64(985), f.router.settled.UserAmount)
	assert.Equal(t, []byte("to the vault"), f.router.settled.Fill.RedeemerMessage)

	// The pending order is gone and the settlement is recorded with its
	// delivery hash.
	assert.Zero(t, f.registry.Len())
	records, err := f.store.ReadSettlements()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(985), records[0].UserAmount)
	assert.Equal(t, "route-tx-hash", records[0].TxHash)
}

func TestProcessorRedeliversFillAfterDeliveryFailure(t *testing.T) {
	f := newProcessorFixture(t)
	f.router.failures = 1
	digest := [32]byte{0x03}

	_, err := f.processor.ProcessVAA(context.Background(), fastOrderVAA(t, digest, 1000, 5))
	require.NoError(t, err)

	// Delivery fails after settlement commits. The order must survive in
	// the registry and the record must carry the encoded fill, otherwise
	// the redeemer message is gone while custody already moved.
	_, err = f.processor.ProcessVAA(context.Background(), slowResponseVAA(t, digest, 10))
	require.Error(t, err)
	assert.Equal(t, 1, f.router.calls)
	assert.Equal(t, 1, f.registry.Len())

	records, err := f.store.ReadSettlements()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].TxHash)
	fill, err := messages.DecodeFill(records[0].Fill)
	require.NoError(t, err)
	assert.Equal(t, []byte("to the vault"), fill.RedeemerMessage)

	// Replaying the slow order response re-routes the same fill without
	// settling again.
	txHash, err := f.processor.ProcessVAA(context.Background(), slowResponseVAA(t, digest, 10))
	require.NoError(t, err)
	assert.Equal(t, "route-tx-hash", txHash)
	assert.Equal(t, 2, f.router.calls)
	assert.Equal(t, []byte("to the vault"), f.router.settled.Fill.RedeemerMessage)
	assert.Zero(t, f.registry.Len())

	// The fee moved exactly once.
	feeBalance, err := f.ledger.Balance(f.feeRecipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), feeBalance)

	single, err := f.store.ReadSettlement(records[0].FastVAAHash)
	require.NoError(t, err)
	assert.Equal(t, "route-tx-hash", single.TxHash)
}

func TestProcessorSkipsUnconfiguredChain(t *testing.T) {
	f := newProcessorFixture(t)

	vaaData := fastOrderVAA(t, [32]byte{0x05}, 100, 1)
	vaaData.ChainID = 4

	_, err := f.processor.ProcessVAA(context.Background(), vaaData)
	require.NoError(t, err)
	assert.Zero(t, f.registry.Len())
}

func TestProcessorIgnoresUnmatchedSlowResponse(t *testing.T) {
	f := newProcessorFixture(t)

	txHash, err := f.processor.ProcessVAA(context.Background(), slowResponseVAA(t, [32]byte{0x06}, 10))
	require.NoError(t, err)
	assert.Empty(t, txHash)
	assert.Zero(t, f.router.calls)
}

func TestProcessorRejectsDuplicateFastOrder(t *testing.T) {
	f := newProcessorFixture(t)
	digest := [32]byte{0x07}

	_, err := f.processor.ProcessVAA(context.Background(), fastOrderVAA(t, digest, 100, 1))
	require.NoError(t, err)

	_, err = f.processor.ProcessVAA(context.Background(), fastOrderVAA(t, digest, 100, 1))
	assert.Error(t, err)
}
