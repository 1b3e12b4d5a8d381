package internal

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// ParseVAAPermissive parses a VAA without being strict about version.
// It handles both v1 and v2 VAAs by extracting the fields we need; the
// raw bytes still travel with the order for downstream verification.
func ParseVAAPermissive(data []byte) (*vaaLib.VAA, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("VAA too short: %d bytes", len(data))
	}

	version := data[0]
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("unsupported VAA version: %d", version)
	}

	// VAA structure (same for v1 and v2):
	// 0: version (1 byte)
	// 1-4: guardian set index (4 bytes)
	// 5: signature count (1 byte)
	// 6+: signatures (66 bytes each: guardian index + signature)
	// After signatures: body

	guardianSetIndex := binary.BigEndian.Uint32(data[1:5])
	signatureCount := int(data[5])

	signatureSize := 66
	signaturesEnd := 6 + (signatureCount * signatureSize)

	if len(data) < signaturesEnd {
		return nil, fmt.Errorf("VAA too short for %d signatures", signatureCount)
	}

	body := data[signaturesEnd:]

	// Body structure:
	// 0-3: timestamp (4 bytes)
	// 4-7: nonce (4 bytes)
	// 8-9: emitter chain (2 bytes)
	// 10-41: emitter address (32 bytes)
	// 42-49: sequence (8 bytes)
	// 50: consistency level (1 byte)
	// 51+: payload

	if len(body) < 51 {
		return nil, fmt.Errorf("VAA body too short: %d bytes", len(body))
	}

	timestamp := binary.BigEndian.Uint32(body[0:4])
	nonce := binary.BigEndian.Uint32(body[4:8])
	emitterChain := binary.BigEndian.Uint16(body[8:10])

	var emitterAddress vaaLib.Address
	copy(emitterAddress[:], body[10:42])

	sequence := binary.BigEndian.Uint64(body[42:50])
	consistencyLevel := body[50]

	payload := body[51:]

	signatures := make([]*vaaLib.Signature, signatureCount)
	for i := 0; i < signatureCount; i++ {
		sigStart := 6 + (i * signatureSize)
		guardianIndex := data[sigStart]
		var sig [65]byte
		copy(sig[:], data[sigStart+1:sigStart+66])
		signatures[i] = &vaaLib.Signature{
			Index:     guardianIndex,
			Signature: sig,
		}
	}

	return &vaaLib.VAA{
		Version:          version,
		GuardianSetIndex: guardianSetIndex,
		Signatures:       signatures,
		Timestamp:        time.Unix(int64(timestamp), 0),
		Nonce:            nonce,
		Sequence:         sequence,
		ConsistencyLevel: consistencyLevel,
		EmitterChain:     vaaLib.ChainID(emitterChain),
		EmitterAddress:   emitterAddress,
		Payload:          payload,
	}, nil
}

// ComputeVAADigest computes keccak256 over the VAA body, the hash the
// matching engine keys auctions and prepared orders by. Wormhole uses
// keccak256 for the body hash (same as Ethereum).
func ComputeVAADigest(vaaBytes []byte) ([32]byte, error) {
	if len(vaaBytes) < 6 {
		return [32]byte{}, fmt.Errorf("VAA too short")
	}

	sigCount := int(vaaBytes[5])
	bodyStart := 6 + (sigCount * 66)

	if len(vaaBytes) < bodyStart {
		return [32]byte{}, fmt.Errorf("VAA too short for %d signatures", sigCount)
	}

	body := vaaBytes[bodyStart:]
	return crypto.Keccak256Hash(body), nil
}
