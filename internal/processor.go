package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/custody"
	"github.com/djb15/example-liquidity-layer/internal/messages"
	"github.com/djb15/example-liquidity-layer/internal/router"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
	"github.com/djb15/example-liquidity-layer/internal/state"
	"github.com/djb15/example-liquidity-layer/internal/store"
)

type OrderProcessor interface {
	// ProcessVAA processes the given VAA and returns the settlement
	// transaction hash (empty when the VAA only registered an order) or
	// an error.
	ProcessVAA(ctx context.Context, vaaData VAAData) (string, error)
}

type OrderProcessorConfig struct {
	ChainIDs          []uint16 // Source chain IDs to listen for
	EmitterAddress    string   // Hex-encoded emitter address to filter (empty = no filter)
	TargetProtocol    state.TargetProtocol
	FeeRecipientToken solana.PublicKey
}

// SettlementProcessor drives the settle-none pipeline: fast market
// orders register a pending order with escrowed custody, slow order
// responses trigger settlement and fill delivery.
type SettlementProcessor struct {
	config   OrderProcessorConfig
	logger   *zap.Logger
	ledger   *custody.MemoryLedger
	engine   *settlement.Engine
	registry *OrderRegistry
	store    *store.Store
	router   router.FillRouter
}

func NewSettlementProcessor(
	logger *zap.Logger,
	config OrderProcessorConfig,
	ledger *custody.MemoryLedger,
	engine *settlement.Engine,
	registry *OrderRegistry,
	auditStore *store.Store,
	fillRouter router.FillRouter,
) *SettlementProcessor {
	// Normalize emitter address: remove 0x prefix, lowercase, pad to 64 chars
	if config.EmitterAddress != "" {
		addr := strings.TrimPrefix(config.EmitterAddress, "0x")
		addr = strings.ToLower(addr)
		for len(addr) < 64 {
			addr = "0" + addr
		}
		config.EmitterAddress = addr
	}

	return &SettlementProcessor{
		config:   config,
		logger:   logger.With(zap.String("component", "SettlementProcessor")),
		ledger:   ledger,
		engine:   engine,
		registry: registry,
		store:    auditStore,
		router:   fillRouter,
	}
}

func (p *SettlementProcessor) ProcessVAA(ctx context.Context, vaaData VAAData) (string, error) {
	// Create a context with timeout covering settlement plus delivery
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p.logger.Debug("VAA details",
		zap.Uint16("emitterChain", vaaData.ChainID),
		zap.String("emitterAddress", vaaData.EmitterHex),
		zap.Uint64("sequence", vaaData.Sequence),
		zap.Int("payloadLength", len(vaaData.VAA.Payload)))

	if !p.acceptsChain(vaaData.ChainID) {
		p.logger.Debug("Skipping VAA (not from configured chain)",
			zap.Uint64("sequence", vaaData.Sequence),
			zap.Uint16("chain", vaaData.ChainID))
		return "", nil
	}

	if p.config.EmitterAddress != "" && vaaData.EmitterHex != p.config.EmitterAddress {
		p.logger.Debug("Skipping VAA (not from configured emitter)",
			zap.Uint64("sequence", vaaData.Sequence),
			zap.String("emitter", vaaData.EmitterHex),
			zap.String("expectedEmitter", p.config.EmitterAddress))
		return "", nil
	}

	payload := vaaData.VAA.Payload
	if len(payload) == 0 {
		p.logger.Debug("Skipping VAA with empty payload", zap.Uint64("sequence", vaaData.Sequence))
		return "", nil
	}

	switch payload[0] {
	case messages.PayloadIDFastMarketOrder:
		return "", p.handleFastMarketOrder(vaaData)
	case messages.PayloadIDSlowOrderResponse:
		return p.handleSlowOrderResponse(ctx, vaaData)
	default:
		p.logger.Debug("Skipping VAA (unknown payload ID)",
			zap.Uint8("payloadID", payload[0]),
			zap.Uint64("sequence", vaaData.Sequence))
		return "", nil
	}
}

func (p *SettlementProcessor) acceptsChain(chainID uint16) bool {
	for _, id := range p.config.ChainIDs {
		if id == chainID {
			return true
		}
	}
	return false
}

// handleFastMarketOrder registers the order: the transferred amount is
// escrowed in a custody account controlled by the order's derived
// authority, and an empty auction record is created so the order can be
// settled once the finalized response arrives.
func (p *SettlementProcessor) handleFastMarketOrder(vaaData VAAData) error {
	order, err := messages.DecodeFastMarketOrder(vaaData.VAA.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode fast market order: %w", err)
	}

	programID := p.engine.ProgramID()
	auth, bump, err := custody.OrderResponseAuthority(programID, vaaData.Digest)
	if err != nil {
		return err
	}
	custodyAccount, err := custody.PreparedCustodyAccount(programID, vaaData.Digest)
	if err != nil {
		return err
	}

	if err := p.ledger.CreateAccount(custodyAccount, auth.Authority, order.AmountIn); err != nil {
		return fmt.Errorf("failed to escrow order funds: %w", err)
	}

	pending := &PendingOrder{
		Digest:         vaaData.Digest,
		SourceChain:    vaaData.ChainID,
		Sequence:       vaaData.Sequence,
		Order:          order,
		CustodyAccount: custodyAccount,
		AuthorityBump:  bump,
		Auction:        state.NewAuction(vaaData.Digest, p.config.TargetProtocol),
	}
	if err := p.registry.Register(pending); err != nil {
		return err
	}

	p.logger.Info("Registered fast market order",
		zap.String("digest", fmt.Sprintf("%x", vaaData.Digest)),
		zap.Uint16("sourceChain", vaaData.ChainID),
		zap.Uint64("sequence", vaaData.Sequence),
		zap.Uint64("amountIn", order.AmountIn),
		zap.String("custodyAccount", custodyAccount.String()))

	return nil
}

// handleSlowOrderResponse settles the matching pending order and routes
// the resulting fill. When delivery fails the settled order stays in the
// registry so a replayed slow order response re-routes the same fill
// without touching custody again.
func (p *SettlementProcessor) handleSlowOrderResponse(ctx context.Context, vaaData VAAData) (string, error) {
	resp, err := messages.DecodeSlowOrderResponse(vaaData.VAA.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode slow order response: %w", err)
	}

	pending, ok := p.registry.Get(resp.FastVAAHash)
	if !ok {
		p.logger.Warn("Slow order response without a pending order",
			zap.String("fastVAAHash", fmt.Sprintf("%x", resp.FastVAAHash)),
			zap.Uint64("sequence", vaaData.Sequence))
		return "", nil
	}

	settled := pending.Settled
	if settled == nil {
		prepared := state.NewPreparedOrderResponse(
			state.OrderResponseSeeds{FastVAAHash: pending.Digest, Bump: pending.AuthorityBump},
			resp.BaseFee,
			pending.Order.InitAuctionFee,
			pending.SourceChain,
			pending.Order.Sender,
			pending.Order.Redeemer,
			pending.Order.RedeemerMessage,
		)

		settled, err = p.engine.SettleNone(ctx, settlement.SettleNoneRequest{
			Order:             prepared,
			CustodyAccount:    pending.CustodyAccount,
			FeeRecipientToken: p.config.FeeRecipientToken,
			Auction:           pending.Auction,
		})
		if err != nil {
			if errors.Is(err, state.ErrAlreadySettled) {
				p.logger.Warn("Duplicate settlement attempt rejected",
					zap.String("fastVAAHash", fmt.Sprintf("%x", resp.FastVAAHash)))
				return "", err
			}
			return "", fmt.Errorf("settlement failed: %w", err)
		}
		pending.Settled = settled

		// Persist before delivery: the encoded fill in the record is the
		// durable copy should the process die mid-delivery.
		if p.store != nil {
			if err := p.store.InsertSettlement(settled, settled.Event); err != nil {
				p.logger.Error("Failed to record settlement", zap.Error(err))
			}
		}
	} else {
		p.logger.Info("Retrying fill delivery for settled order",
			zap.String("fastVAAHash", fmt.Sprintf("%x", resp.FastVAAHash)))
	}

	txHash, err := p.router.RouteFill(ctx, settled, pending.Digest)
	if err != nil {
		// Settlement is committed; the order stays registered so the
		// next slow order response replay retries delivery.
		p.logger.Error("Fill delivery failed after settlement",
			zap.String("fastVAAHash", fmt.Sprintf("%x", resp.FastVAAHash)),
			zap.Error(err))
		return "", fmt.Errorf("fill delivery failed: %w", err)
	}

	if p.store != nil {
		if err := p.store.RecordDelivery(fmt.Sprintf("%x", pending.Digest), txHash); err != nil {
			p.logger.Error("Failed to record fill delivery", zap.Error(err))
		}
	}

	p.registry.Remove(pending.Digest)

	p.logger.Info("Order settled",
		zap.String("fastVAAHash", fmt.Sprintf("%x", resp.FastVAAHash)),
		zap.Uint64("fee", settled.Fee),
		zap.Uint64("userAmount", settled.UserAmount),
		zap.String("txHash", txHash))

	return txHash, nil
}
