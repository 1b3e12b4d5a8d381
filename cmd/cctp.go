package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal"
	"github.com/djb15/example-liquidity-layer/internal/clients"
	"github.com/djb15/example-liquidity-layer/internal/router"
	"github.com/djb15/example-liquidity-layer/internal/state"
)

const (
	// Default configuration values for CCTP delivery
	DefaultEVMRPCURL      = "https://sepolia.base.org"
	DefaultAttestationURL = "https://iris-api-sandbox.circle.com"
)

// Default source chains for CCTP delivery (Ethereum=2, Avalanche=6, Solana=1)
var DefaultCCTPSourceChains = []int{2, 6, 1}

// cctpCmd settles orders whose fills travel through a Circle burn/mint
// transfer to an EVM destination chain
var cctpCmd = &cobra.Command{
	Use:   "cctp",
	Short: "Settle fast-transfer orders with CCTP burn/mint fill delivery",
	Long: `Listens for fast market orders and their finalized responses, settles each
order without an auction, and forwards the resulting fill to an EVM chain
through Circle's cross-chain transfer protocol.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		printBanner()
		configureLogging(cmd, args)
	},
	RunE: runCCTPSettler,
}

func init() {
	rootCmd.AddCommand(cctpCmd)

	cctpCmd.Flags().String(
		"evm-rpc-url",
		DefaultEVMRPCURL,
		"RPC URL for the EVM destination chain")

	cctpCmd.Flags().String(
		"private-key",
		"",
		"Private key for EVM transactions (required)")

	cctpCmd.Flags().String(
		"target-contract",
		"",
		"Target contract receiving redeemed fills (required)")

	cctpCmd.Flags().String(
		"attestation-url",
		DefaultAttestationURL,
		"Circle attestation service base URL")

	cctpCmd.Flags().IntSlice(
		"chain-ids",
		DefaultCCTPSourceChains,
		"Source chain IDs to listen for (Ethereum=2, Avalanche=6, Solana=1)")

	cctpCmd.MarkFlagRequired("private-key")
	cctpCmd.MarkFlagRequired("target-contract")

	viper.BindPFlag("evm_rpc_url", cctpCmd.Flags().Lookup("evm-rpc-url"))
	viper.BindPFlag("private_key", cctpCmd.Flags().Lookup("private-key"))
	viper.BindPFlag("target_contract", cctpCmd.Flags().Lookup("target-contract"))
	viper.BindPFlag("attestation_url", cctpCmd.Flags().Lookup("attestation-url"))
}

type CCTPConfig struct {
	SpyRPCHost        string   // Wormhole spy service endpoint
	ChainIDs          []uint16 // Source chain IDs to listen for
	EVMRPCURL         string   // RPC URL for the EVM destination
	PrivateKey        string   // Private key for EVM transactions
	TargetContract    string   // Contract receiving redeemed fills
	AttestationURL    string   // Circle attestation service base URL
	ProgramID         string   // Matching engine program ID
	FeeRecipientToken string   // Token account receiving protocol fees
	EmitterAddress    string   // Source emitter address to filter
	DBPath            string   // Settlement audit database path
}

func runCCTPSettler(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	logger.Info("Starting CCTP settlement worker")

	// Get flags directly from command (viper bindings conflict across commands)
	emitterAddress, _ := cmd.Flags().GetString("emitter-address")
	chainIDsInt, _ := cmd.Flags().GetIntSlice("chain-ids")

	chainIDs := make([]uint16, len(chainIDsInt))
	for i, id := range chainIDsInt {
		chainIDs[i] = uint16(id)
	}

	config := CCTPConfig{
		SpyRPCHost:        viper.GetString("spy_rpc_host"),
		ChainIDs:          chainIDs,
		EVMRPCURL:         viper.GetString("evm_rpc_url"),
		PrivateKey:        viper.GetString("private_key"),
		TargetContract:    viper.GetString("target_contract"),
		AttestationURL:    viper.GetString("attestation_url"),
		ProgramID:         viper.GetString("matching_engine_program_id"),
		FeeRecipientToken: viper.GetString("fee_recipient_token"),
		EmitterAddress:    emitterAddress,
		DBPath:            viper.GetString("db_path"),
	}

	if config.PrivateKey == "" {
		return fmt.Errorf("private key is required for EVM transactions")
	}
	if config.TargetContract == "" {
		return fmt.Errorf("target contract is required")
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
		zap.String("evmRPC", config.EVMRPCURL),
		zap.String("targetContract", config.TargetContract),
		zap.String("attestationURL", config.AttestationURL),
		zap.String("programID", config.ProgramID),
		zap.String("emitterFilter", config.EmitterAddress))

	spyClient, err := clients.NewSpyClient(logger, config.SpyRPCHost)
	if err != nil {
		return fmt.Errorf("failed to create spy client: %v", err)
	}

	evmClient, err := clients.NewEVMClient(logger, config.EVMRPCURL, config.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to create EVM client: %v", err)
	}

	logger.Info("Connected to EVM chain",
		zap.String("address", evmClient.GetAddress().Hex()))

	attestationClient := clients.NewAttestationClient(logger, config.AttestationURL)

	pipeline, err := buildPipeline(logger, config.ProgramID, config.FeeRecipientToken, config.DBPath)
	if err != nil {
		return err
	}
	defer pipeline.store.Close()

	cctpRouter := router.NewCCTPRouter(logger, config.TargetContract, evmClient, attestationClient)

	processor := internal.NewSettlementProcessor(logger,
		internal.OrderProcessorConfig{
			ChainIDs:          config.ChainIDs,
			EmitterAddress:    config.EmitterAddress,
			TargetProtocol:    state.ProtocolCCTP,
			FeeRecipientToken: pipeline.feeRecipientToken,
		},
		pipeline.ledger,
		pipeline.engine,
		pipeline.registry,
		pipeline.store,
		cctpRouter)

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
