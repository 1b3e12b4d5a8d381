package messages

import (
	"encoding/binary"
	"fmt"
)

// FastMarketOrder is the order a user emits on the source chain to
// request a fast transfer.
//
// Wire layout:
//
//	  0:       payload ID (11)
//	  1-8:     amount in (u64)
//	  9-16:    min amount out (u64)
//	 17-18:    target chain (u16)
//	 19-50:    redeemer (32 bytes)
//	 51-82:    sender (32 bytes)
//	 83-114:   refund address (32 bytes)
//	115-122:   max fee (u64)
//	123-130:   init auction fee (u64)
//	131-134:   deadline (u32, unix seconds; 0 = none)
//	135-138:   redeemer message length (u32)
//	139+:      redeemer message
type FastMarketOrder struct {
	AmountIn        uint64
	MinAmountOut    uint64
	TargetChain     uint16
	Redeemer        [32]byte
	Sender          [32]byte
	RefundAddress   [32]byte
	MaxFee          uint64
	InitAuctionFee  uint64
	Deadline        uint32
	RedeemerMessage []byte
}

const fastMarketOrderFixedLen = 1 + 8 + 8 + 2 + 32 + 32 + 32 + 8 + 8 + 4 + 4

// Encode serializes the order.
func (o *FastMarketOrder) Encode() ([]byte, error) {
	buf := make([]byte, 0, fastMarketOrderFixedLen+len(o.RedeemerMessage))
	buf = append(buf, PayloadIDFastMarketOrder)
	buf = binary.BigEndian.AppendUint64(buf, o.AmountIn)
	buf = binary.BigEndian.AppendUint64(buf, o.MinAmountOut)
	buf = binary.BigEndian.AppendUint16(buf, o.TargetChain)
	buf = append(buf, o.Redeemer[:]...)
	buf = append(buf, o.Sender[:]...)
	buf = append(buf, o.RefundAddress[:]...)
	buf = binary.BigEndian.AppendUint64(buf, o.MaxFee)
	buf = binary.BigEndian.AppendUint64(buf, o.InitAuctionFee)
	buf = binary.BigEndian.AppendUint32(buf, o.Deadline)
	return appendFramed(buf, o.RedeemerMessage)
}

// DecodeFastMarketOrder parses a fast market order payload.
func DecodeFastMarketOrder(data []byte) (*FastMarketOrder, error) {
	if len(data) < fastMarketOrderFixedLen {
		return nil, fmt.Errorf("fast market order too short: %d bytes", len(data))
	}
	if data[0] != PayloadIDFastMarketOrder {
		return nil, fmt.Errorf("unexpected payload ID %d, want %d", data[0], PayloadIDFastMarketOrder)
	}

	order := &FastMarketOrder{
		AmountIn:     binary.BigEndian.Uint64(data[1:9]),
		MinAmountOut: binary.BigEndian.Uint64(data[9:17]),
		TargetChain:  binary.BigEndian.Uint16(data[17:19]),
	}
	copy(order.Redeemer[:], data[19:51])
	copy(order.Sender[:], data[51:83])
	copy(order.RefundAddress[:], data[83:115])
	order.MaxFee = binary.BigEndian.Uint64(data[115:123])
	order.InitAuctionFee = binary.BigEndian.Uint64(data[123:131])
	order.Deadline = binary.BigEndian.Uint32(data[131:135])

	msg, rest, err := readFramed(data[135:])
	if err != nil {
		return nil, fmt.Errorf("fast market order redeemer message: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("fast market order has %d trailing bytes", len(rest))
	}
	order.RedeemerMessage = msg
	return order, nil
}

// SlowOrderResponse is the finalized-path message confirming an order is
// fully funded. It carries the base fee owed to the relayer that walked
// the slow path.
//
// Wire layout:
//
//	 0:     payload ID (2)
//	 1-32:  fast VAA hash (32 bytes)
//	33-40:  base fee (u64)
type SlowOrderResponse struct {
	FastVAAHash [32]byte
	BaseFee     uint64
}

const slowOrderResponseLen = 1 + 32 + 8

// Encode serializes the response.
func (r *SlowOrderResponse) Encode() []byte {
	buf := make([]byte, 0, slowOrderResponseLen)
	buf = append(buf, PayloadIDSlowOrderResponse)
	buf = append(buf, r.FastVAAHash[:]...)
	return binary.BigEndian.AppendUint64(buf, r.BaseFee)
}

// DecodeSlowOrderResponse parses a slow order response payload.
func DecodeSlowOrderResponse(data []byte) (*SlowOrderResponse, error) {
	if len(data) != slowOrderResponseLen {
		return nil, fmt.Errorf("slow order response wrong length: %d bytes", len(data))
	}
	if data[0] != PayloadIDSlowOrderResponse {
		return nil, fmt.Errorf("unexpected payload ID %d, want %d", data[0], PayloadIDSlowOrderResponse)
	}
	resp := &SlowOrderResponse{
		BaseFee: binary.BigEndian.Uint64(data[33:41]),
	}
	copy(resp.FastVAAHash[:], data[1:33])
	return resp, nil
}
