package router

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/settlement"
)

// FillRedeemer is the slice of the EVM client CCTP delivery needs.
type FillRedeemer interface {
	GetAddress() common.Address
	RedeemFill(ctx context.Context, targetContract string, fillBytes, attestation []byte) (string, error)
}

// AttestationFetcher fetches the Circle attestation for a message hash.
type AttestationFetcher interface {
	GetAttestation(ctx context.Context, messageHash [32]byte) ([]byte, error)
}

// CCTPRouter forwards fills to an EVM destination chain through Circle's
// burn/mint transfer: it waits for the attestation over the fill, then
// submits redeemFill to the target contract.
type CCTPRouter struct {
	targetContract    string
	evmClient         FillRedeemer
	attestationClient AttestationFetcher
	logger            *zap.Logger
}

// NewCCTPRouter creates a new CCTP delivery router.
func NewCCTPRouter(logger *zap.Logger, targetContract string, evmClient FillRedeemer, attestationClient AttestationFetcher) *CCTPRouter {
	return &CCTPRouter{
		targetContract:    targetContract,
		evmClient:         evmClient,
		attestationClient: attestationClient,
		logger:            logger.With(zap.String("component", "CCTPRouter")),
	}
}

// RouteFill fetches the attestation for the fill and submits it to the
// EVM target contract, returning the transaction hash.
func (r *CCTPRouter) RouteFill(ctx context.Context, settled *settlement.Settled, digest [32]byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fillBytes, err := settled.Fill.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode fill: %w", err)
	}

	r.logger.Info("Routing fill via CCTP",
		zap.Int("fillLength", len(fillBytes)),
		zap.Uint64("userAmount", settled.UserAmount),
		zap.String("targetContract", r.targetContract),
		zap.String("fromAddress", r.evmClient.GetAddress().Hex()))

	var messageHash [32]byte = crypto.Keccak256Hash(fillBytes)
	attestation, err := r.attestationClient.GetAttestation(ctx, messageHash)
	if err != nil {
		return "", fmt.Errorf("failed to fetch attestation: %w", err)
	}

	txHash, err := r.evmClient.RedeemFill(ctx, r.targetContract, fillBytes, attestation)
	if err != nil {
		return "", fmt.Errorf("failed to redeem fill on EVM: %w", err)
	}

	r.logger.Info("Fill redeemed via CCTP",
		zap.String("txHash", txHash),
		zap.String("targetContract", r.targetContract))

	return txHash, nil
}
