// Package spy consumes the signed-message stream published by a guardian
// spy service and feeds it through local verification.
package spy

import (
	"context"
	"fmt"
	"time"

	spyv1 "github.com/certusone/wormhole/node/pkg/proto/spy/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to a spy service.
type Client struct {
	conn     *grpc.ClientConn
	client   spyv1.SpyRPCServiceClient
	endpoint string
	logger   *zap.Logger
}

// NewClient connects to the spy service at endpoint.
func NewClient(logger *zap.Logger, endpoint string) (*Client, error) {
	c := &Client{
		endpoint: endpoint,
		logger:   logger.With(zap.String("component", "SpyClient")),
	}

	c.logger.Info("Connecting to spy service", zap.String("endpoint", endpoint))
	conn, err := grpc.Dial(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to spy: %v", err)
	}

	c.conn = conn
	c.client = spyv1.NewSpyRPCServiceClient(conn)

	return c, nil
}

// Close closes the connection to the spy service.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Subscribe opens the signed message stream, retrying with a fixed delay on
// transient failures.
func (c *Client) Subscribe(ctx context.Context) (spyv1.SpyRPCService_SubscribeSignedVAAClient, error) {
	const maxRetries = 5
	const retryDelay = 2 * time.Second

	c.logger.Debug("Subscribing to signed messages")

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		stream, err := c.client.SubscribeSignedVAA(ctx, &spyv1.SubscribeSignedVAARequest{})
		if err == nil {
			return stream, nil
		}
		lastErr = err

		if attempt < maxRetries {
			c.logger.Warn("Subscribe attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
				zap.Duration("retryIn", retryDelay))

			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry: %v", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("failed to subscribe after %d attempts: %v", maxRetries, lastErr)
}
