package router

import (
	"context"

	"github.com/djb15/example-liquidity-layer/internal/settlement"
)

// FillRouter delivers the fill produced by a settlement to its
// destination and returns the delivery transaction hash or an error.
type FillRouter interface {
	RouteFill(ctx context.Context, settled *settlement.Settled, digest [32]byte) (string, error)
}
