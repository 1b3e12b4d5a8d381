// Package internal wires the settlement pipeline: a worker streams
// signed VAAs from a Wormhole spy node and feeds them to the order
// processor, which escrows fast market orders and settles them when the
// finalized slow order responses arrive.
package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/djb15/example-liquidity-layer/internal/clients"
)

type Worker struct {
	spyClient *clients.SpyClient
	processor OrderProcessor
	logger    *zap.Logger
}

// NewWorker creates a new settlement worker instance
func NewWorker(logger *zap.Logger, spyClient *clients.SpyClient, processor OrderProcessor) (*Worker, error) {
	return &Worker{
		logger:    logger.With(zap.String("component", "Worker")),
		spyClient: spyClient,
		processor: processor,
	}, nil
}

// Close cleans up resources used by the worker
func (w *Worker) Close() {
	if w.spyClient != nil {
		w.spyClient.Close()
	}
}

// Start begins listening for VAAs and processing them
func (w *Worker) Start(ctx context.Context) error {
	// Track processing goroutines so shutdown can drain them
	var wg sync.WaitGroup

	stream, err := w.spyClient.SubscribeSignedVAA(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to VAA stream: %v", err)
	}

	w.logger.Info("Listening for VAAs")

	// Separate context so in-flight settlements finish during shutdown
	processingCtx, cancelProcessing := context.WithCancel(context.Background())
	defer cancelProcessing()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down worker")
			cancelProcessing()
			w.logger.Info("Waiting for in-flight settlements to complete")
			wg.Wait()
			w.logger.Info("Shutdown complete")
			return nil
		default:
			resp, err := stream.Recv()
			if err != nil {
				w.logger.Warn("Stream error, retrying in 5s", zap.Error(err))
				time.Sleep(5 * time.Second)
				stream, err = w.spyClient.SubscribeSignedVAA(ctx)
				if err != nil {
					cancelProcessing()
					wg.Wait()
					return fmt.Errorf("subscribe to VAA stream after retry: %v", err)
				}
				continue
			}

			wg.Add(1)
			go func(vaaBytes []byte) {
				defer wg.Done()
				w.processVAA(processingCtx, vaaBytes)
			}(resp.VaaBytes)
		}
	}
}

func (w *Worker) processVAA(ctx context.Context, vaaBytes []byte) {
	select {
	case <-ctx.Done():
		w.logger.Debug("Processing cancelled for VAA")
		return
	default:
	}

	parsed, err := ParseVAAPermissive(vaaBytes)
	if err != nil {
		w.logger.Error("Failed to parse VAA", zap.Error(err))
		return
	}

	digest, err := ComputeVAADigest(vaaBytes)
	if err != nil {
		w.logger.Error("Failed to compute VAA digest", zap.Error(err))
		return
	}

	vaaData := VAAData{
		VAA:        parsed,
		RawBytes:   vaaBytes,
		Digest:     digest,
		ChainID:    uint16(parsed.EmitterChain),
		EmitterHex: fmt.Sprintf("%064x", parsed.EmitterAddress),
		Sequence:   parsed.Sequence,
	}

	w.logger.Debug("Processing VAA",
		zap.Uint16("chain", vaaData.ChainID),
		zap.Uint64("sequence", vaaData.Sequence),
		zap.String("emitter", vaaData.EmitterHex),
		zap.String("digest", fmt.Sprintf("%x", digest)))

	if _, err := w.processor.ProcessVAA(ctx, vaaData); err != nil {
		w.logger.Error("Error processing VAA", zap.Error(err))
	}
}
