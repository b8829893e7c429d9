package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/gateway"
	"github.com/spec-kit/invest-access/internal/observability"
)

// Stream is a live remote subscription.
type Stream interface {
	Done() <-chan struct{}
	Err() error
	Close() error
}

// ListenFunc opens a stream that feeds sink with events not from origin.
type ListenFunc func(ctx context.Context, origin string, sink gateway.Sink) (Stream, error)

// FromGateway adapts a Redis gateway to a ListenFunc.
func FromGateway(gw *gateway.RedisGateway) ListenFunc {
	return func(ctx context.Context, origin string, sink gateway.Sink) (Stream, error) {
		sub, err := gw.Listen(ctx, origin, sink)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// IngressOptions configures an IngressWorker.
type IngressOptions struct {
	Listen     ListenFunc
	Sink       gateway.Sink
	Origin     string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *zap.Logger
}

// IngressWorker keeps a remote subscription open and resubscribes with
// exponential backoff when it drops. Events missed while disconnected are
// not replayed; views catch up on their next refetch.
type IngressWorker struct {
	opts   IngressOptions
	logger *zap.Logger
}

// NewIngressWorker builds a worker.
func NewIngressWorker(opts IngressOptions) *IngressWorker {
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	return &IngressWorker{opts: opts, logger: observability.OrNop(opts.Logger)}
}

// Run blocks until ctx is done.
func (w *IngressWorker) Run(ctx context.Context) {
	backoff := w.opts.MinBackoff
	for {
		stream, err := w.opts.Listen(ctx, w.opts.Origin, w.opts.Sink)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("sync ingress subscribe failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = next(backoff, w.opts.MaxBackoff)
			continue
		}

		w.logger.Info("sync ingress subscribed")
		backoff = w.opts.MinBackoff

		select {
		case <-ctx.Done():
			_ = stream.Close()
			return
		case <-stream.Done():
			w.logger.Warn("sync ingress stream ended", zap.Error(stream.Err()))
			_ = stream.Close()
		}
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func next(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}
