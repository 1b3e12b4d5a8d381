package router

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/settlement"
)

// LocalDeliverer is the slice of the Solana client local delivery needs.
type LocalDeliverer interface {
	GetPayerAddress() solana.PublicKey
	SendRedeemLocalFillTransaction(ctx context.Context, fillBytes []byte, digest [32]byte, sourceChain uint16) (string, error)
}

// LocalRouter delivers fills on the same chain the matching engine runs
// on: the released custody funds are redeemed directly via a program
// instruction, no cross-chain transfer involved.
type LocalRouter struct {
	solanaClient LocalDeliverer
	logger       *zap.Logger
}

// NewLocalRouter creates a new local delivery router.
func NewLocalRouter(logger *zap.Logger, solanaClient LocalDeliverer) *LocalRouter {
	return &LocalRouter{
		solanaClient: solanaClient,
		logger:       logger.With(zap.String("component", "LocalRouter")),
	}
}

// RouteFill submits the fill for same-chain redemption and returns the
// transaction signature.
func (r *LocalRouter) RouteFill(ctx context.Context, settled *settlement.Settled, digest [32]byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 180*time.Second)
	defer cancel()

	fillBytes, err := settled.Fill.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode fill: %w", err)
	}

	r.logger.Info("Routing fill locally",
		zap.Int("fillLength", len(fillBytes)),
		zap.Uint64("userAmount", settled.UserAmount),
		zap.String("payer", r.solanaClient.GetPayerAddress().String()))

	sig, err := r.solanaClient.SendRedeemLocalFillTransaction(ctx, fillBytes, digest, settled.Fill.SourceChain)
	if err != nil {
		return "", fmt.Errorf("failed to redeem fill on Solana: %w", err)
	}

	r.logger.Info("Fill redeemed locally",
		zap.String("signature", sig),
		zap.Uint16("sourceChain", settled.Fill.SourceChain))

	return sig, nil
}
