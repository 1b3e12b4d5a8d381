// Package messages implements the liquidity layer wire formats carried
// inside Wormhole VAA payloads. All integers are big-endian; variable
// length buffers are framed with a 32-bit length prefix.
package messages

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Payload IDs, first byte of every liquidity layer message.
const (
	PayloadIDFill              uint8 = 1
	PayloadIDSlowOrderResponse uint8 = 2
	PayloadIDFastMarketOrder   uint8 = 11
)

// MaxRedeemerMessageLen bounds a redeemer message so its length fits the
// 32-bit frame.
const MaxRedeemerMessageLen = math.MaxUint32

// ErrMessageTooLong is returned when a redeemer message exceeds
// MaxRedeemerMessageLen and cannot be length-framed.
var ErrMessageTooLong = errors.New("redeemer message exceeds 32-bit length frame")

func appendFramed(dst []byte, msg []byte) ([]byte, error) {
	if uint64(len(msg)) > MaxRedeemerMessageLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLong, len(msg))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(msg)))
	return append(dst, msg...), nil
}

func readFramed(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("truncated length frame: %d bytes", len(buf))
	}
	n := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	if uint64(len(buf)) < uint64(n) {
		return nil, nil, fmt.Errorf("framed message short: want %d bytes, have %d", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}
