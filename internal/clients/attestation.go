package clients

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AttestationResponse is the Circle attestation service reply for one
// message hash.
type AttestationResponse struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AttestationClient fetches Circle (CCTP) attestations for burn
// messages over HTTP.
type AttestationClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAttestationClient creates a client for the Circle attestation API.
func NewAttestationClient(logger *zap.Logger, baseURL string) *AttestationClient {
	return &AttestationClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.With(zap.String("component", "AttestationClient")),
	}
}

// GetAttestation fetches the attestation for a message hash, polling
// until the attestation service reports it complete or the context ends.
func (c *AttestationClient) GetAttestation(ctx context.Context, messageHash [32]byte) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/attestations/0x%s", c.baseURL, hex.EncodeToString(messageHash[:]))

	const pollDelay = 5 * time.Second

	for {
		resp, err := c.fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		switch resp.Status {
		case "complete":
			attestation, err := hex.DecodeString(strings.TrimPrefix(resp.Attestation, "0x"))
			if err != nil {
				return nil, fmt.Errorf("malformed attestation hex: %v", err)
			}
			c.logger.Debug("Attestation complete",
				zap.String("messageHash", fmt.Sprintf("%x", messageHash)),
				zap.Int("attestationLength", len(attestation)))
			return attestation, nil
		case "pending_confirmations":
			c.logger.Debug("Attestation pending, polling",
				zap.String("messageHash", fmt.Sprintf("%x", messageHash)),
				zap.Duration("retryIn", pollDelay))
		default:
			return nil, fmt.Errorf("attestation service returned status %q: %s", resp.Status, resp.Error)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled waiting for attestation: %v", ctx.Err())
		case <-time.After(pollDelay):
		}
	}
}

func (c *AttestationClient) fetch(ctx context.Context, url string) (*AttestationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create attestation request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attestation request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attestation response: %v", err)
	}

	var parsed AttestationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse attestation response: %v (body: %s)", err, string(body))
	}
	return &parsed, nil
}

// CheckHealth verifies the attestation service is reachable.
func (c *AttestationClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/publicKeys", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("attestation service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
