package clients

import (
	"context"
	"fmt"
	"time"

	spyv1 "github.com/certusone/wormhole/node/pkg/proto/spy/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	spySubscribeRetries    = 5
	spySubscribeRetryDelay = 2 * time.Second
)

// SpyClient streams signed VAAs from a Wormhole spy node. Both the fast
// market orders and the finalized slow order responses arrive over this
// stream.
type SpyClient struct {
	conn   *grpc.ClientConn
	client spyv1.SpyRPCServiceClient
	logger *zap.Logger
}

// NewSpyClient connects to the spy service at endpoint.
func NewSpyClient(logger *zap.Logger, endpoint string) (*SpyClient, error) {
	client := &SpyClient{
		logger: logger.With(zap.String("component", "SpyClient")),
	}

	client.logger.Info("Connecting to spy service", zap.String("endpoint", endpoint))
	conn, err := grpc.Dial(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to spy: %v", err)
	}

	client.conn = conn
	client.client = spyv1.NewSpyRPCServiceClient(conn)
	return client, nil
}

// Close closes the connection to the spy service
func (c *SpyClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// SubscribeSignedVAA subscribes to all signed VAAs, dialing a fresh
// connection per attempt with bounded retries.
func (c *SpyClient) SubscribeSignedVAA(ctx context.Context) (spyv1.SpyRPCService_SubscribeSignedVAAClient, error) {
	c.logger.Debug("Subscribing to signed VAAs")

	var lastErr error
	for attempt := 1; attempt <= spySubscribeRetries; attempt++ {
		endpoint := c.conn.Target()
		conn, err := grpc.DialContext(ctx, endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithBlock())
		if err == nil {
			client := spyv1.NewSpyRPCServiceClient(conn)
			stream, serr := client.SubscribeSignedVAA(ctx, &spyv1.SubscribeSignedVAARequest{})
			if serr == nil {
				return stream, nil
			}
			conn.Close()
			lastErr = serr
		} else {
			lastErr = err
		}

		if attempt < spySubscribeRetries {
			c.logger.Warn("Subscribe attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
				zap.Duration("retryIn", spySubscribeRetryDelay))

			select {
			case <-time.After(spySubscribeRetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %v", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("failed to subscribe after %d attempts: %v", spySubscribeRetries, lastErr)
}
