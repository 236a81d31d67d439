package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sendBudget bounds one event's delivery including retries
const sendBudget = 30 * time.Second

// Dispatcher sends events in the background. A nil Dispatcher drops events,
// so callers without a relay configured need no special casing.
type Dispatcher struct {
	client *Client
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns nil when client is nil
func NewDispatcher(client *Client, logger *zap.Logger) *Dispatcher {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{client: client, logger: logger}
}

// Dispatch queues ev for delivery and returns immediately
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("relay closed, dropping event", zap.String("call_id", ev.CallID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sendBudget)
		defer cancel()

		if err := d.client.Send(ctx, ev); err != nil {
			d.logger.Error("relay failed",
				zap.String("call_id", ev.CallID),
				zap.String("url", d.client.URL()),
				zap.Error(err),
			)
			return
		}
		d.logger.Debug("relayed verdict", zap.String("call_id", ev.CallID), zap.String("tier", string(ev.Tier)))
	}()
}

// Close stops accepting events and waits for in-flight deliveries or ctx
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
