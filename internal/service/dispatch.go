package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	apperrors "github.com/ivis-ai/rag-gateway/internal/errors"
	"github.com/ivis-ai/rag-gateway/internal/observability/metrics"
	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
)

// Search depth bounds applied before dispatch.
const (
	defaultTopK = 5
	maxTopK     = 50
)

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Publisher core.Publisher
	Bindings  *core.BindingStore
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// DispatchService validates requests, assigns correlation identifiers,
// and publishes them to the worker pool. When the caller names a push
// session, the correlation-to-session binding is written before the
// publish so a fast worker reply can never observe a missing binding.
type DispatchService struct {
	publisher core.Publisher
	bindings  *core.BindingStore
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewDispatchService constructs a new DispatchService.
func NewDispatchService(opts DispatchServiceOptions) *DispatchService {
	if opts.Publisher == nil {
		panic("Publisher is required")
	}
	if opts.Bindings == nil {
		panic("BindingStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		publisher: opts.Publisher,
		bindings:  opts.Bindings,
		logger:    logger.With("component", "dispatch"),
		metrics:   opts.Metrics,
	}
}

// DispatchSearch publishes a search request and returns its correlation
// identifier.
func (s *DispatchService) DispatchSearch(
	ctx context.Context,
	ident auth.Identity,
	sessionID string,
	p model.SearchPayload,
) (string, error) {
	if p.Query == "" {
		return "", apperrors.Validation("query cannot be empty")
	}

	topK := p.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	kbID := p.KBID
	if kbID == "" {
		kbID = model.DefaultKBID
	}

	requestID := uuid.New().String()
	msg := model.SearchRequestMessage{
		RequestID: requestID,
		TraceID:   uuid.New().String(),
		Query:     p.Query,
		TopK:      topK,
		TenantID:  ident.Tenant(),
		KBID:      kbID,
	}

	if err := s.dispatch(ctx, model.KindSearch, requestID, sessionID, msg); err != nil {
		return "", err
	}
	return requestID, nil
}

// DispatchAnswer publishes an answer-generation request and returns its
// correlation identifier.
func (s *DispatchService) DispatchAnswer(
	ctx context.Context,
	ident auth.Identity,
	sessionID string,
	p model.AnswerPayload,
) (string, error) {
	if p.Question == "" {
		return "", apperrors.Validation("question cannot be empty")
	}

	requestID := uuid.New().String()
	msg := model.AnswerRequestMessage{
		RequestID: requestID,
		Question:  p.Question,
		Context:   p.Context,
		Metadata:  map[string]string{"tenant": ident.Tenant()},
	}

	if err := s.dispatch(ctx, model.KindAnswer, requestID, sessionID, msg); err != nil {
		return "", err
	}
	return requestID, nil
}

// DispatchIngest publishes a document ingest request and returns the
// document identifier. Ingest results are not correlated back; the
// worker owns the document lifecycle from here.
func (s *DispatchService) DispatchIngest(
	ctx context.Context,
	ident auth.Identity,
	p model.IngestPayload,
) (string, error) {
	if p.S3Path == "" {
		return "", apperrors.Validation("s3_path cannot be empty")
	}

	docID := p.DocID
	if docID == "" {
		docID = uuid.New().String()
	}
	kbID := p.KBID
	if kbID == "" {
		kbID = model.DefaultKBID
	}

	msg := model.DocIngestMessage{
		DocID:    docID,
		TenantID: ident.Tenant(),
		KBID:     kbID,
		S3Path:   p.S3Path,
		Filename: p.Filename,
	}

	if err := s.dispatch(ctx, model.KindIngest, docID, "", msg); err != nil {
		return "", err
	}
	return docID, nil
}

// dispatch binds, serialises, and publishes one request.
func (s *DispatchService) dispatch(
	ctx context.Context,
	kind model.RequestKind,
	requestID, sessionID string,
	msg any,
) error {
	started := time.Now()

	if sessionID != "" {
		// Bind strictly before publish. If the binding cannot be written the
		// request must not go out: a worker reply would otherwise arrive with
		// no routable session.
		if err := s.bindings.Bind(ctx, requestID, sessionID); err != nil {
			s.emit(kind, metrics.ResultError, started)
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "binding store unavailable")
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request message")
	}

	// The correlation id is the ordering key so every message for one
	// request lands on a single consumer in FIFO order.
	if err := s.publisher.Publish(ctx, kind.Topic(), requestID, payload); err != nil {
		s.emit(kind, metrics.ResultError, started)
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "message bus unavailable")
	}

	s.logger.InfoContext(ctx, "request dispatched",
		"kind", kind, "request_id", requestID, "topic", kind.Topic())
	s.emit(kind, metrics.ResultSuccess, started)
	return nil
}

func (s *DispatchService) emit(kind model.RequestKind, result string, started time.Time) {
	metrics.EmitPipeline(s.metrics, metrics.PipelineMetric{
		Stage:    metrics.StageDispatch,
		Kind:     string(kind),
		Result:   result,
		Duration: time.Since(started),
	})
}
