package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivis-ai/rag-gateway/config"
	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	"github.com/ivis-ai/rag-gateway/internal/observability/metrics"
	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
)

// storeRetryDelay is the pause between result store write attempts.
const storeRetryDelay = 250 * time.Millisecond

// readBatchSize bounds how many entries one blocking read returns.
// Entries are still processed one at a time to preserve stream order.
const readBatchSize = 16

// sideEffectTimeout bounds the detached push and history tasks spawned
// after acknowledgement.
const sideEffectTimeout = 10 * time.Second

// PushNotifier delivers a freshly stored result to a live session.
// Implementations are best effort and must not return errors.
type PushNotifier interface {
	NotifyResult(ctx context.Context, requestID string, payload []byte)
}

// AnswerRecorder appends a completed answer to chat history, best effort.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, requestID string, payload []byte)
}

// RunnerOptions configures the result consumer runner.
type RunnerOptions struct {
	Client  redis.UniversalClient
	Results *core.ResultStore
	Config  config.BusConfig

	// Optional side-effect sinks and instrumentation.
	Notifier PushNotifier
	Recorder AnswerRecorder
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Runner consumes the inbound result streams through a consumer group and
// feeds the result store. One sequential loop per stream keeps entries
// sharing an ordering key in order.
type Runner struct {
	client   redis.UniversalClient
	results  *core.ResultStore
	notifier PushNotifier
	recorder AnswerRecorder
	logger   *slog.Logger
	metrics  statsd.Sink
	cfg      config.BusConfig
	streams  []string
}

// NewRunner constructs a consumer Runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Client == nil {
		panic("redis client is required")
	}
	if opts.Results == nil {
		panic("ResultStore is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	cfg.Sanitize()
	if cfg.Consumer == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "consumer-1"
		}
		cfg.Consumer = host
	}

	return &Runner{
		client:   opts.Client,
		results:  opts.Results,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		logger:   logger.With("component", "result_consumer"),
		metrics:  opts.Metrics,
		cfg:      cfg,
		streams:  model.InboundTopics(),
	}
}

// Run creates the consumer group, starts one loop per inbound stream plus
// a reclaim loop, and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureGroups(ctx); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "starting result consumer",
		"group", r.cfg.Group, "consumer", r.cfg.Consumer, "streams", r.streams)

	var wg sync.WaitGroup
	for _, stream := range r.streams {
		wg.Add(1)
		go func(stream string) {
			defer wg.Done()
			r.streamLoop(ctx, stream)
		}(stream)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.reclaimLoop(ctx)
	}()

	wg.Wait()
	return ctx.Err()
}

// ensureGroups creates the consumer group on every inbound stream,
// creating the stream itself when the worker has not published yet.
func (r *Runner) ensureGroups(ctx context.Context) error {
	for _, stream := range r.streams {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.cfg.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create consumer group on %s: %w", stream, err)
		}
	}
	return nil
}

func (r *Runner) streamLoop(ctx context.Context, stream string) {
	for ctx.Err() == nil {
		res, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			Streams:  []string{stream, ">"},
			Count:    readBatchSize,
			Block:    r.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.logger.ErrorContext(ctx, "bus read failed", "stream", stream, "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, sr := range res {
			for _, msg := range sr.Messages {
				r.handle(ctx, stream, msg)
			}
		}
	}
}

// reclaimLoop periodically adopts pending entries whose owning consumer
// died before acknowledging, so a crashed instance's messages get
// reprocessed instead of stranding.
func (r *Runner) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ClaimMinIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, stream := range r.streams {
			r.reclaimStream(ctx, stream)
		}
	}
}

func (r *Runner) reclaimStream(ctx context.Context, stream string) {
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.ClaimMinIdle,
			Start:    start,
			Count:    readBatchSize,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "reclaim failed", "stream", stream, "error", err)
			}
			return
		}

		for _, msg := range msgs {
			r.handle(ctx, stream, msg)
		}

		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}

// handle processes one inbound entry. Malformed entries are dropped and
// acknowledged; storable entries are acknowledged only after the result
// store write succeeds so an unstored result is redelivered.
func (r *Runner) handle(ctx context.Context, stream string, msg redis.XMessage) {
	started := time.Now()
	payload := messagePayload(msg)

	requestID := extractRequestID(payload)
	if requestID == "" {
		r.logger.WarnContext(ctx, "dropping malformed bus message",
			"stream", stream, "message_id", msg.ID)
		r.ack(ctx, stream, msg.ID)
		r.emit(stream, metrics.ResultDropped, started)
		return
	}

	body := payload
	if stream == model.TopicFailed {
		rec, err := normalizeFailure(payload)
		if err != nil {
			r.logger.WarnContext(ctx, "dropping malformed failure message",
				"stream", stream, "message_id", msg.ID, "request_id", requestID)
			r.ack(ctx, stream, msg.ID)
			r.emit(stream, metrics.ResultDropped, started)
			return
		}
		if body, err = rec.Marshal(); err != nil {
			body = payload
		}
	}

	if !r.storeWithRetry(ctx, requestID, body) {
		// Left unacknowledged on purpose; the entry stays pending and is
		// redelivered or reclaimed later.
		r.logger.ErrorContext(ctx, "result store unavailable, leaving message pending",
			"stream", stream, "message_id", msg.ID, "request_id", requestID)
		r.emit(stream, metrics.ResultError, started)
		return
	}

	r.ack(ctx, stream, msg.ID)
	r.emit(stream, metrics.ResultSuccess, started)

	r.spawnSideEffects(ctx, stream, requestID, body)
}

// spawnSideEffects runs the push and history tasks detached from message
// handling. Their failure never affects the stored result or the ack.
func (r *Runner) spawnSideEffects(ctx context.Context, stream, requestID string, body []byte) {
	detached := context.WithoutCancel(ctx)

	if r.notifier != nil {
		go func() {
			nctx, cancel := context.WithTimeout(detached, sideEffectTimeout)
			defer cancel()
			r.notifier.NotifyResult(nctx, requestID, body)
		}()
	}

	if r.recorder != nil && stream == model.TopicAnswerResult {
		go func() {
			rctx, cancel := context.WithTimeout(detached, sideEffectTimeout)
			defer cancel()
			r.recorder.RecordAnswer(rctx, requestID, body)
		}()
	}
}

func (r *Runner) storeWithRetry(ctx context.Context, requestID string, body []byte) bool {
	for attempt := 1; attempt <= r.cfg.StoreRetryAttempts; attempt++ {
		err := r.results.Put(ctx, requestID, body)
		if err == nil {
			return true
		}
		r.logger.WarnContext(ctx, "result store write failed",
			"request_id", requestID, "attempt", attempt, "error", err)
		if attempt < r.cfg.StoreRetryAttempts {
			sleepCtx(ctx, storeRetryDelay)
		}
	}
	return false
}

func (r *Runner) ack(ctx context.Context, stream, id string) {
	if err := r.client.XAck(ctx, stream, r.cfg.Group, id).Err(); err != nil {
		// The result is already stored; a failed ack only means one
		// redundant redelivery against an idempotent store.
		r.logger.WarnContext(ctx, "ack failed", "stream", stream, "message_id", id, "error", err)
	}
}

func (r *Runner) emit(stream, result string, started time.Time) {
	metrics.EmitPipeline(r.metrics, metrics.PipelineMetric{
		Stage:    metrics.StageConsume,
		Kind:     stream,
		Result:   result,
		Duration: time.Since(started),
	})
}

// messagePayload pulls the JSON body out of a stream entry.
func messagePayload(msg redis.XMessage) []byte {
	v, ok := msg.Values[fieldPayload]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return []byte(s)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
