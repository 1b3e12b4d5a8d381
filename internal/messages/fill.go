package messages

import (
	"encoding/binary"
	"fmt"
)

// Fill instructs the destination chain how to deliver the settled funds
// to the final recipient.
//
// Wire layout:
//
//	 0:      payload ID (1)
//	 1-2:    source chain (u16)
//	 3-34:   order sender (32 bytes)
//	35-66:   redeemer (32 bytes)
//	67-70:   redeemer message length (u32)
//	71+:     redeemer message
type Fill struct {
	SourceChain     uint16
	OrderSender     [32]byte
	Redeemer        [32]byte
	RedeemerMessage []byte
}

const fillFixedLen = 1 + 2 + 32 + 32 + 4

// Encode serializes the fill. Fails only if the redeemer message cannot
// be length-framed.
func (f *Fill) Encode() ([]byte, error) {
	buf := make([]byte, 0, fillFixedLen+len(f.RedeemerMessage))
	buf = append(buf, PayloadIDFill)
	buf = binary.BigEndian.AppendUint16(buf, f.SourceChain)
	buf = append(buf, f.OrderSender[:]...)
	buf = append(buf, f.Redeemer[:]...)
	return appendFramed(buf, f.RedeemerMessage)
}

// DecodeFill parses a fill payload.
func DecodeFill(data []byte) (*Fill, error) {
	if len(data) < fillFixedLen {
		return nil, fmt.Errorf("fill too short: %d bytes", len(data))
	}
	if data[0] != PayloadIDFill {
		return nil, fmt.Errorf("unexpected payload ID %d, want %d", data[0], PayloadIDFill)
	}

	fill := &Fill{
		SourceChain: binary.BigEndian.Uint16(data[1:3]),
	}
	copy(fill.OrderSender[:], data[3:35])
	copy(fill.Redeemer[:], data[35:67])

	msg, rest, err := readFramed(data[67:])
	if err != nil {
		return nil, fmt.Errorf("fill redeemer message: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("fill has %d trailing bytes", len(rest))
	}
	fill.RedeemerMessage = msg
	return fill, nil
}
