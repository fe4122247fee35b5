package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/observability/metrics"
	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
)

// PushServiceOptions groups dependencies for PushService.
type PushServiceOptions struct {
	Bindings *core.BindingStore
	Registry *SessionRegistry
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// PushService delivers stored results to live sessions. Delivery is a
// pure optimization over polling: every failure mode (no binding, no
// session, dead connection) is a logged no-op, attempted exactly once.
type PushService struct {
	bindings *core.BindingStore
	registry *SessionRegistry
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewPushService constructs a new PushService.
func NewPushService(opts PushServiceOptions) *PushService {
	if opts.Bindings == nil {
		panic("BindingStore is required")
	}
	if opts.Registry == nil {
		panic("SessionRegistry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PushService{
		bindings: opts.Bindings,
		registry: opts.Registry,
		logger:   logger.With("component", "push"),
		metrics:  opts.Metrics,
	}
}

// NotifyResult pushes a result payload to the session bound to requestID,
// if that session is connected to this instance.
func (p *PushService) NotifyResult(ctx context.Context, requestID string, payload []byte) {
	started := time.Now()

	sessionID, err := p.bindings.Lookup(ctx, requestID)
	if err != nil {
		p.logger.WarnContext(ctx, "binding lookup failed", "request_id", requestID, "error", err)
		p.emit(metrics.ResultError, started)
		return
	}
	if sessionID == "" {
		// Poll-only request, or the binding expired. Nothing to push.
		p.emit(metrics.ResultDropped, started)
		return
	}

	conn := p.registry.Get(sessionID)
	if conn == nil {
		p.logger.DebugContext(ctx, "session not connected, skipping push",
			"request_id", requestID, "session_id", sessionID)
		p.emit(metrics.ResultDropped, started)
		return
	}

	if err := conn.Send(payload); err != nil {
		p.logger.WarnContext(ctx, "push send failed",
			"request_id", requestID, "session_id", sessionID, "error", err)
		p.emit(metrics.ResultError, started)
		return
	}

	p.logger.DebugContext(ctx, "result pushed", "request_id", requestID, "session_id", sessionID)
	p.emit(metrics.ResultSuccess, started)
}

func (p *PushService) emit(result string, started time.Time) {
	metrics.EmitPipeline(p.metrics, metrics.PipelineMetric{
		Stage:    metrics.StagePush,
		Result:   result,
		Duration: time.Since(started),
	})
}
