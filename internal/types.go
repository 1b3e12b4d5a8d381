package internal

import (
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"
)

type VAAData struct {
	VAA        *vaaLib.VAA // The parsed VAA
	RawBytes   []byte      // Raw VAA bytes
	Digest     [32]byte    // keccak256 of the VAA body, the order key
	ChainID    uint16      // Emitter chain ID
	EmitterHex string      // Hex-encoded emitter address
	Sequence   uint64      // VAA sequence number
}
