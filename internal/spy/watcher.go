package spy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler receives each raw signed message observed on the stream.
type Handler interface {
	// HandleSignedVAA processes raw signed message bytes. Errors are logged
	// by the watcher; they do not stop the stream.
	HandleSignedVAA(ctx context.Context, raw []byte) error
}

// Watcher drives the spy stream, handing every message to a Handler.
type Watcher struct {
	client  *Client
	handler Handler
	logger  *zap.Logger
}

func NewWatcher(logger *zap.Logger, client *Client, handler Handler) *Watcher {
	return &Watcher{
		client:  client,
		handler: handler,
		logger:  logger.With(zap.String("component", "Watcher")),
	}
}

// Close releases the underlying spy connection.
func (w *Watcher) Close() {
	if w.client != nil {
		w.client.Close()
	}
}

// Start consumes the stream until ctx is cancelled, resubscribing on
// stream errors. In-flight handler calls are drained before returning.
func (w *Watcher) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	stream, err := w.client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to signed message stream: %v", err)
	}

	w.logger.Info("Listening for signed messages")

	processingCtx, cancelProcessing := context.WithCancel(context.Background())
	defer cancelProcessing()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down watcher")
			cancelProcessing()
			wg.Wait()
			w.logger.Info("Shutdown complete")
			return nil
		default:
			resp, err := stream.Recv()
			if err != nil {
				w.logger.Warn("Stream error, retrying in 5s", zap.Error(err))
				time.Sleep(5 * time.Second)
				stream, err = w.client.Subscribe(ctx)
				if err != nil {
					cancelProcessing()
					wg.Wait()
					return fmt.Errorf("subscribe to signed message stream after retry: %v", err)
				}
				continue
			}

			wg.Add(1)
			go func(raw []byte) {
				defer wg.Done()
				if err := w.handler.HandleSignedVAA(processingCtx, raw); err != nil {
					w.logger.Error("Error handling signed message", zap.Error(err))
				}
			}(resp.VaaBytes)
		}
	}
}
