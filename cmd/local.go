package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal"
	"github.com/djb15/example-liquidity-layer/internal/clients"
	"github.com/djb15/example-liquidity-layer/internal/custody"
	"github.com/djb15/example-liquidity-layer/internal/router"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
	"github.com/djb15/example-liquidity-layer/internal/state"
	"github.com/djb15/example-liquidity-layer/internal/store"
)

const (
	// Default configuration values for Solana
	DefaultSolanaRPCURL = "https://api.devnet.solana.com"
)

// Default source chains for local delivery (Ethereum=2, Avalanche=6, Base=30)
var DefaultLocalSourceChains = []int{2, 6, 30}

// localCmd settles orders whose fills are delivered on the same chain
var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Settle fast-transfer orders with same-chain fill delivery",
	Long: `Listens for fast market orders and their finalized responses, settles each
order without an auction, and redeems the resulting fill directly on the
matching engine chain.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		printBanner()
		configureLogging(cmd, args)
	},
	RunE: runLocalSettler,
}

func init() {
	rootCmd.AddCommand(localCmd)

	localCmd.Flags().String(
		"solana-rpc-url",
		DefaultSolanaRPCURL,
		"RPC URL for Solana")

	localCmd.Flags().String(
		"solana-private-key",
		"",
		"Private key for Solana transactions (base58 encoded, required)")

	localCmd.Flags().IntSlice(
		"chain-ids",
		DefaultLocalSourceChains,
		"Source chain IDs to listen for (Ethereum=2, Avalanche=6, Base=30)")

	localCmd.MarkFlagRequired("solana-private-key")

	viper.BindPFlag("solana_rpc_url", localCmd.Flags().Lookup("solana-rpc-url"))
	viper.BindPFlag("solana_private_key", localCmd.Flags().Lookup("solana-private-key"))
}

type LocalConfig struct {
	SpyRPCHost        string   // Wormhole spy service endpoint
	ChainIDs          []uint16 // Source chain IDs to listen for
	SolanaRPCURL      string   // RPC URL for Solana
	SolanaPrivateKey  string   // Private key for Solana transactions (base58)
	ProgramID         string   // Matching engine program ID
	FeeRecipientToken string   // Token account receiving protocol fees
	EmitterAddress    string   // Source emitter address to filter
	DBPath            string   // Settlement audit database path
}

func runLocalSettler(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	logger.Info("Starting local settlement worker")

	// Get flags directly from command (viper bindings conflict across commands)
	emitterAddress, _ := cmd.Flags().GetString("emitter-address")
	chainIDsInt, _ := cmd.Flags().GetIntSlice("chain-ids")

	chainIDs := make([]uint16, len(chainIDsInt))
	for i, id := range chainIDsInt {
		chainIDs[i] = uint16(id)
	}

	config := LocalConfig{
		SpyRPCHost:        viper.GetString("spy_rpc_host"),
		ChainIDs:          chainIDs,
		SolanaRPCURL:      viper.GetString("solana_rpc_url"),
		SolanaPrivateKey:  viper.GetString("solana_private_key"),
		ProgramID:         viper.GetString("matching_engine_program_id"),
		FeeRecipientToken: viper.GetString("fee_recipient_token"),
		EmitterAddress:    emitterAddress,
		DBPath:            viper.GetString("db_path"),
	}

	if config.SolanaPrivateKey == "" {
		return fmt.Errorf("Solana private key is required")
	}
	if config.ProgramID == "" {
		return fmt.Errorf("matching engine program ID is required")
	}
	if config.FeeRecipientToken == "" {
		return fmt.Errorf("fee recipient token is required")
	}

	logger.Info("Configuration",
		zap.String("spyRPC", config.SpyRPCHost),
		zap.Any("chainIds", config.ChainIDs),
		zap.String("solanaRPC", config.SolanaRPCURL),
		zap.String("programID", config.ProgramID),
		zap.String("feeRecipientToken", config.FeeRecipientToken),
		zap.String("emitterFilter", config.EmitterAddress))

	spyClient, err := clients.NewSpyClient(logger, config.SpyRPCHost)
	if err != nil {
		return fmt.Errorf("failed to create spy client: %v", err)
	}

	solanaClient, err := clients.NewSolanaClient(
		logger,
		config.SolanaRPCURL,
		config.SolanaPrivateKey,
		config.ProgramID,
	)
	if err != nil {
		return fmt.Errorf("failed to create Solana client: %v", err)
	}

	logger.Info("Connected to Solana",
		zap.String("payer", solanaClient.GetPayerAddress().String()),
		zap.String("programID", solanaClient.GetProgramID().String()))

	pipeline, err := buildPipeline(logger, config.ProgramID, config.FeeRecipientToken, config.DBPath)
	if err != nil {
		return err
	}
	defer pipeline.store.Close()

	localRouter := router.NewLocalRouter(logger, solanaClient)

	processor := internal.NewSettlementProcessor(logger,
		internal.OrderProcessorConfig{
			ChainIDs:          config.ChainIDs,
			EmitterAddress:    config.EmitterAddress,
			TargetProtocol:    state.ProtocolLocal,
			FeeRecipientToken: pipeline.feeRecipientToken,
		},
		pipeline.ledger,
		pipeline.engine,
		pipeline.registry,
		pipeline.store,
		localRouter)

	worker, err := internal.NewWorker(logger, spyClient, processor)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %v", err)
	}
	defer worker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("worker stopped with error: %v", err)
	}

	return nil
}

// pipeline bundles the pieces shared by both delivery modes.
type pipeline struct {
	ledger            *custody.MemoryLedger
	engine            *settlement.Engine
	registry          *internal.OrderRegistry
	store             *store.Store
	feeRecipientToken solana.PublicKey
}

func buildPipeline(logger *zap.Logger, programID, feeRecipientToken, dbPath string) (*pipeline, error) {
	progID, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid matching engine program ID: %v", err)
	}

	feeRecipient, err := solana.PublicKeyFromBase58(feeRecipientToken)
	if err != nil {
		return nil, fmt.Errorf("invalid fee recipient token: %v", err)
	}

	ledger := custody.NewMemoryLedger()
	// The fee recipient controls its own token account; settlement only
	// ever credits it.
	if err := ledger.CreateAccount(feeRecipient, feeRecipient, 0); err != nil {
		return nil, err
	}

	engine, err := settlement.NewEngine(logger, ledger, progID)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement engine: %v", err)
	}

	auditStore, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		ledger:            ledger,
		engine:            engine,
		registry:          internal.NewOrderRegistry(),
		store:             auditStore,
		feeRecipientToken: feeRecipient,
	}, nil
}
