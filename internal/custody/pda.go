package custody

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes mirroring the on-chain matching engine accounts.
var (
	SeedOrderResponse   = []byte("order-response")
	SeedPreparedCustody = []byte("prepared-custody")
	SeedCustodian       = []byte("emitter")
)

// OrderResponseAuthority derives the signing authority a prepared order
// response holds over its custody account, from the fast VAA hash.
func OrderResponseAuthority(programID solana.PublicKey, fastVAAHash [32]byte) (Authorization, uint8, error) {
	pda, bump, err := solana.FindProgramAddress(
		[][]byte{SeedOrderResponse, fastVAAHash[:]},
		programID,
	)
	if err != nil {
		return Authorization{}, 0, fmt.Errorf("derive order response authority: %w", err)
	}
	return Authorization{Authority: pda}, bump, nil
}

// PreparedCustodyAccount derives the custody token account holding one
// prepared order's escrowed funds.
func PreparedCustodyAccount(programID solana.PublicKey, fastVAAHash [32]byte) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{SeedPreparedCustody, fastVAAHash[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive prepared custody account: %w", err)
	}
	return pda, nil
}

// CustodianAuthority derives the protocol-wide custodian, the fixed
// authority that takes over custody accounts after settlement.
func CustodianAuthority(programID solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{SeedCustodian}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive custodian authority: %w", err)
	}
	return pda, nil
}
