package bus

import (
	"encoding/json"
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/ivis-ai/rag-gateway/internal/domain/model"
)

// Workers have shipped two failure formats: the current one nests code and
// message under an "error" object and labels the failing stage in "type",
// the older one carries flat "error_code"/"error_message" fields. JMESPath
// expressions with fallbacks read both without format sniffing.
const (
	exprRequestID    = "request_id"
	exprErrorCode    = "error.code || error_code"
	exprErrorMessage = "error.message || error_message"
	exprFailureStage = "type"
)

// decodeEnvelope parses a raw bus payload into a generic document for
// JMESPath evaluation.
func decodeEnvelope(payload []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode bus payload: %w", err)
	}
	return doc, nil
}

// searchString evaluates a JMESPath expression and returns the result as a
// string, or "" when the path is absent or not a string.
func searchString(expr string, doc any) string {
	v, err := jmespath.Search(expr, doc)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// extractRequestID pulls the correlation identifier out of an inbound
// message. Returns "" for malformed messages.
func extractRequestID(payload []byte) string {
	doc, err := decodeEnvelope(payload)
	if err != nil {
		return ""
	}
	return searchString(exprRequestID, doc)
}

// normalizeFailure converts either worker failure format into the
// canonical stored failure record.
func normalizeFailure(payload []byte) (model.FailureRecord, error) {
	doc, err := decodeEnvelope(payload)
	if err != nil {
		return model.FailureRecord{}, err
	}

	rec := model.FailureRecord{
		Status:       model.StatusFailed,
		ErrorCode:    searchString(exprErrorCode, doc),
		ErrorMessage: searchString(exprErrorMessage, doc),
		Stage:        searchString(exprFailureStage, doc),
	}
	if rec.ErrorCode == "" {
		rec.ErrorCode = "UNKNOWN"
	}
	return rec, nil
}
