package model

import "encoding/json"

// ResultStatus describes the observable state of a dispatched request.
// "processing" is implicit: it is reported when no stored result exists yet.
type ResultStatus string

const (
	// ResultProcessing means no result has been stored (yet, or anymore).
	ResultProcessing ResultStatus = "processing"
	// ResultCompleted means the worker produced a successful payload.
	ResultCompleted ResultStatus = "completed"
	// ResultFailed means the worker reported a failure for the request.
	ResultFailed ResultStatus = "failed"
)

// PollResult is the outcome of a result poll.
type PollResult struct {
	Status ResultStatus
	// Payload is the stored worker payload, verbatim. Nil while processing.
	Payload json.RawMessage
	// ErrorMessage is set when Status is ResultFailed.
	ErrorMessage string
}

// IsReady returns true once a terminal result is available.
func (p PollResult) IsReady() bool {
	return p.Status == ResultCompleted || p.Status == ResultFailed
}
