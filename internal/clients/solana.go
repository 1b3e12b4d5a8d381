package clients

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/custody"
)

// PDA seeds for the matching engine program, in addition to the custody
// seeds shared with the ledger layer.
var (
	SeedAuction      = []byte("auction")
	SeedRedeemed     = []byte("redeemed-fill")
	SeedFeeRecipient = []byte("fee-recipient")
)

// Instruction discriminators (from the Anchor IDL).
var DiscriminatorRedeemLocalFill = []byte{156, 64, 2, 219, 12, 194, 77, 8}

// SolanaClient handles interactions with the matching engine program on
// Solana.
type SolanaClient struct {
	client    *rpc.Client
	payer     solana.PrivateKey
	programID solana.PublicKey
	logger    *zap.Logger
}

// NewSolanaClient creates a new Solana client for the matching engine.
func NewSolanaClient(logger *zap.Logger, rpcURL string, privateKeyBase58 string, programID string) (*SolanaClient, error) {
	client := &SolanaClient{
		logger: logger.With(zap.String("component", "SolanaClient")),
	}

	client.logger.Info("Connecting to Solana", zap.String("rpcURL", rpcURL))
	client.client = rpc.New(rpcURL)

	privKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	client.payer = privKey

	progID, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program ID: %v", err)
	}
	client.programID = progID

	client.logger.Info("Solana client initialized",
		zap.String("payer", client.payer.PublicKey().String()),
		zap.String("programID", client.programID.String()))

	return client, nil
}

// GetPayerAddress returns the payer's public key
func (c *SolanaClient) GetPayerAddress() solana.PublicKey {
	return c.payer.PublicKey()
}

// GetProgramID returns the matching engine program ID
func (c *SolanaClient) GetProgramID() solana.PublicKey {
	return c.programID
}

// DeriveAuctionPDA derives the auction account for a fast VAA digest.
func (c *SolanaClient) DeriveAuctionPDA(digest [32]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedAuction, digest[:]}, c.programID)
}

// DeriveRedeemedFillPDA derives the replay-protection account for a
// delivered fill.
func (c *SolanaClient) DeriveRedeemedFillPDA(sourceChain uint16, digest [32]byte) (solana.PublicKey, uint8, error) {
	chainIDBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(chainIDBytes, sourceChain)
	return solana.FindProgramAddress([][]byte{SeedRedeemed, chainIDBytes, digest[:]}, c.programID)
}

// BuildRedeemLocalFillInstruction builds the instruction that delivers a
// settled fill on the same chain. The custodian PDA signs the custody
// withdrawal on-chain.
func (c *SolanaClient) BuildRedeemLocalFillInstruction(
	fillBytes []byte,
	digest [32]byte,
	sourceChain uint16,
) (*solana.GenericInstruction, error) {
	custodian, err := custody.CustodianAuthority(c.programID)
	if err != nil {
		return nil, err
	}

	custodyAccount, err := custody.PreparedCustodyAccount(c.programID, digest)
	if err != nil {
		return nil, err
	}

	auctionPDA, _, err := c.DeriveAuctionPDA(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auction PDA: %v", err)
	}

	redeemedPDA, _, err := c.DeriveRedeemedFillPDA(sourceChain, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to derive redeemed fill PDA: %v", err)
	}

	// Instruction data: discriminator + digest (32 bytes) + u32 length-prefixed fill
	data := make([]byte, 0, 8+32+4+len(fillBytes))
	data = append(data, DiscriminatorRedeemLocalFill...)
	data = append(data, digest[:]...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(fillBytes)))
	data = append(data, fillBytes...)

	accounts := []*solana.AccountMeta{
		{PublicKey: c.payer.PublicKey(), IsSigner: true, IsWritable: true},      // payer
		{PublicKey: custodian, IsSigner: false, IsWritable: false},              // custodian
		{PublicKey: custodyAccount, IsSigner: false, IsWritable: true},          // prepared custody token
		{PublicKey: auctionPDA, IsSigner: false, IsWritable: true},              // auction
		{PublicKey: redeemedPDA, IsSigner: false, IsWritable: true},             // redeemed fill (replay protection)
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},  // token program
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false}, // system program
	}

	return solana.NewInstruction(c.programID, accounts, data), nil
}

// SendRedeemLocalFillTransaction submits the fill for same-chain
// delivery and returns the transaction signature.
func (c *SolanaClient) SendRedeemLocalFillTransaction(
	ctx context.Context,
	fillBytes []byte,
	digest [32]byte,
	sourceChain uint16,
) (string, error) {
	c.logger.Debug("Building redeem_local_fill transaction",
		zap.Uint16("sourceChain", sourceChain),
		zap.Int("fillLength", len(fillBytes)),
		zap.String("digest", fmt.Sprintf("%x", digest)))

	ix, err := c.BuildRedeemLocalFillInstruction(fillBytes, digest, sourceChain)
	if err != nil {
		return "", fmt.Errorf("failed to build instruction: %v", err)
	}

	recentBlockhash, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %v", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recentBlockhash.Value.Blockhash,
		solana.TransactionPayer(c.payer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %v", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.payer.PublicKey()) {
			return &c.payer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %v", err)
	}

	sig, err := c.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %v", err)
	}

	c.logger.Info("Transaction sent", zap.String("signature", sig.String()))

	return sig.String(), nil
}
