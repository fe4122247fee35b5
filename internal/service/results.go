package service

import (
	"context"
	"encoding/json"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	apperrors "github.com/ivis-ai/rag-gateway/internal/errors"
)

// ResultServiceOptions groups dependencies for ResultService.
type ResultServiceOptions struct {
	Results *core.ResultStore
}

// ResultService answers poll requests from the result store.
type ResultService struct {
	results *core.ResultStore
}

// NewResultService constructs a new ResultService.
func NewResultService(opts ResultServiceOptions) *ResultService {
	if opts.Results == nil {
		panic("ResultStore is required")
	}
	return &ResultService{results: opts.Results}
}

// Poll reports the state of a dispatched request. An absent result means
// the request is still processing (or expired); the caller cannot tell
// the difference and neither can we.
func (s *ResultService) Poll(ctx context.Context, requestID string) (*model.PollResult, error) {
	if requestID == "" {
		return nil, apperrors.Validation("request id cannot be empty")
	}

	payload, err := s.results.Get(ctx, requestID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "result store unavailable")
	}
	if payload == nil {
		return &model.PollResult{Status: model.ResultProcessing}, nil
	}

	// Failure records carry status "failed"; anything else stored under
	// the key is a completed worker result.
	var probe struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if jsonErr := json.Unmarshal(payload, &probe); jsonErr == nil && probe.Status == model.StatusFailed {
		return &model.PollResult{
			Status:       model.ResultFailed,
			Payload:      payload,
			ErrorMessage: probe.ErrorMessage,
		}, nil
	}

	return &model.PollResult{
		Status:  model.ResultCompleted,
		Payload: payload,
	}, nil
}
