package store

import (
	"database/sql"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb15/example-liquidity-layer/internal/events"
	"github.com/djb15/example-liquidity-layer/internal/messages"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
	"github.com/djb15/example-liquidity-layer/internal/state"
)

func testSettled() (*settlement.Settled, events.AuctionSettled) {
	event := events.AuctionSettled{
		FastVAAHash: [32]byte{0xaa, 0xbb},
		BaseFeeToken: &events.SettledTokenAccountInfo{
			Key:          solana.NewWallet().PublicKey(),
			BalanceAfter: 40,
		},
		WithExecute: state.ProtocolLocal,
	}
	settled := &settlement.Settled{
		Fee:        15,
		UserAmount: 985,
		Fill: messages.Fill{
			SourceChain:     23,
			RedeemerMessage: []byte("to the vault"),
		},
		Event: event,
	}
	return settled, event
}

func TestStoreInsertAndRead(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	settled, event := testSettled()
	require.NoError(t, s.InsertSettlement(settled, event))

	records, err := s.ReadSettlements()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, uint64(15), rec.Fee)
	assert.Equal(t, uint64(985), rec.UserAmount)
	assert.Equal(t, uint64(40), rec.BalanceAfter)
	assert.Equal(t, "Local", rec.WithExecute)
	assert.Empty(t, rec.TxHash)

	// The encoded fill travels with the record so delivery can be
	// replayed from the database alone.
	fill, err := messages.DecodeFill(rec.Fill)
	require.NoError(t, err)
	assert.Equal(t, uint16(23), fill.SourceChain)
	assert.Equal(t, []byte("to the vault"), fill.RedeemerMessage)

	single, err := s.ReadSettlement(rec.FastVAAHash)
	require.NoError(t, err)
	assert.Equal(t, rec.UserAmount, single.UserAmount)
}

func TestStoreRecordDelivery(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	settled, event := testSettled()
	require.NoError(t, s.InsertSettlement(settled, event))

	records, err := s.ReadSettlements()
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, s.RecordDelivery(records[0].FastVAAHash, "5Kq3...sig"))

	single, err := s.ReadSettlement(records[0].FastVAAHash)
	require.NoError(t, err)
	assert.Equal(t, "5Kq3...sig", single.TxHash)

	assert.Error(t, s.RecordDelivery("deadbeef", "sig"))
}

func TestStoreSaturatedAmountsSurvive(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	settled, event := testSettled()
	settled.Fee = math.MaxUint64
	settled.UserAmount = 0
	event.BaseFeeToken.BalanceAfter = math.MaxUint64
	require.NoError(t, s.InsertSettlement(settled, event))

	records, err := s.ReadSettlements()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(math.MaxUint64), records[0].Fee)
	assert.Equal(t, uint64(math.MaxUint64), records[0].BalanceAfter)
	assert.Zero(t, records[0].UserAmount)
}

func TestStoreRejectsDuplicateSettlement(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	settled, event := testSettled()
	require.NoError(t, s.InsertSettlement(settled, event))
	assert.Error(t, s.InsertSettlement(settled, event))
}

func TestStoreReadMissing(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadSettlement("deadbeef")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
