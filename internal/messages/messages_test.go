package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillRoundTrip(t *testing.T) {
	fill := &Fill{
		SourceChain:     23,
		OrderSender:     [32]byte{0x11, 0x22},
		Redeemer:        [32]byte{0x33, 0x44},
		RedeemerMessage: []byte("release funds"),
	}

	encoded, err := fill.Encode()
	require.NoError(t, err)
	assert.Equal(t, PayloadIDFill, encoded[0])

	decoded, err := DecodeFill(encoded)
	require.NoError(t, err)
	assert.Equal(t, fill, decoded)
}

func TestFillEmptyMessage(t *testing.T) {
	fill := &Fill{SourceChain: 1}

	encoded, err := fill.Encode()
	require.NoError(t, err)

	decoded, err := DecodeFill(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded.RedeemerMessage)
}

func TestDecodeFillRejectsGarbage(t *testing.T) {
	_, err := DecodeFill(nil)
	assert.Error(t, err)

	_, err = DecodeFill([]byte{0x09, 0x00})
	assert.Error(t, err)

	fill := &Fill{SourceChain: 1, RedeemerMessage: []byte("x")}
	encoded, err := fill.Encode()
	require.NoError(t, err)

	// Truncated framed message.
	_, err = DecodeFill(encoded[:len(encoded)-1])
	assert.Error(t, err)

	// Trailing bytes after the framed message.
	_, err = DecodeFill(append(encoded, 0x00))
	assert.Error(t, err)

	// Wrong payload ID.
	encoded[0] = PayloadIDFastMarketOrder
	_, err = DecodeFill(encoded)
	assert.Error(t, err)
}

func TestFastMarketOrderRoundTrip(t *testing.T) {
	order := &FastMarketOrder{
		AmountIn:        1_000_000,
		MinAmountOut:    990_000,
		TargetChain:     1,
		Redeemer:        [32]byte{0x01},
		Sender:          [32]byte{0x02},
		RefundAddress:   [32]byte{0x03},
		MaxFee:          1_500,
		InitAuctionFee:  5,
		Deadline:        1700000000,
		RedeemerMessage: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	encoded, err := order.Encode()
	require.NoError(t, err)
	assert.Equal(t, PayloadIDFastMarketOrder, encoded[0])

	decoded, err := DecodeFastMarketOrder(encoded)
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}

func TestDecodeFastMarketOrderRejectsShort(t *testing.T) {
	_, err := DecodeFastMarketOrder([]byte{PayloadIDFastMarketOrder})
	assert.Error(t, err)
}

func TestSlowOrderResponseRoundTrip(t *testing.T) {
	resp := &SlowOrderResponse{
		FastVAAHash: [32]byte{0xab, 0xcd},
		BaseFee:     10,
	}

	encoded := resp.Encode()
	assert.Equal(t, PayloadIDSlowOrderResponse, encoded[0])
	assert.Len(t, encoded, 41)

	decoded, err := DecodeSlowOrderResponse(encoded)
	require.NoError(t, err)
	assert.Equal(t, resp, decoded)
}

func TestDecodeSlowOrderResponseRejectsWrongLength(t *testing.T) {
	_, err := DecodeSlowOrderResponse(make([]byte, 40))
	assert.Error(t, err)

	_, err = DecodeSlowOrderResponse(make([]byte, 42))
	assert.Error(t, err)
}

func TestReadFramedBoundary(t *testing.T) {
	// Declared length beyond the available bytes must not panic.
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0x01}
	_, _, err := readFramed(buf)
	assert.Error(t, err)
}
