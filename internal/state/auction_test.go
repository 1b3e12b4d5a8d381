package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionSettlesOnce(t *testing.T) {
	auction := NewAuction([32]byte{0x01}, ProtocolLocal)
	assert.Equal(t, StatusNotStarted, auction.Status().Kind)

	claim, err := auction.BeginSettlement()
	require.NoError(t, err)
	claim.Commit(15, nil)

	status := auction.Status()
	assert.Equal(t, StatusSettled, status.Kind)
	assert.Equal(t, uint64(15), status.Fee)
	assert.Nil(t, status.TotalPenalty)

	_, err = auction.BeginSettlement()
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestAuctionAbortLeavesStatus(t *testing.T) {
	auction := NewAuction([32]byte{0x02}, ProtocolCCTP)

	claim, err := auction.BeginSettlement()
	require.NoError(t, err)
	claim.Abort()

	assert.Equal(t, StatusNotStarted, auction.Status().Kind)

	// A later attempt still succeeds.
	claim, err = auction.BeginSettlement()
	require.NoError(t, err)
	claim.Commit(7, nil)
	assert.Equal(t, StatusSettled, auction.Status().Kind)
}

func TestAuctionActiveCannotSettle(t *testing.T) {
	auction := NewAuction([32]byte{0x03}, ProtocolLocal)
	auction.status = AuctionStatus{Kind: StatusActive}

	_, err := auction.BeginSettlement()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadySettled)
}

func TestPreparedOrderMessageMove(t *testing.T) {
	order := NewPreparedOrderResponse(
		OrderResponseSeeds{FastVAAHash: [32]byte{0x04}, Bump: 254},
		10, 5, 2,
		[32]byte{0x11}, [32]byte{0x22},
		[]byte("payload"),
	)

	assert.Equal(t, 7, order.RedeemerMessageLen())
	msg := order.TakeRedeemerMessage()
	assert.Equal(t, []byte("payload"), msg)
	assert.Zero(t, order.RedeemerMessageLen())
	assert.Nil(t, order.TakeRedeemerMessage())
}
