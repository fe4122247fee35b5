package model

import "encoding/json"

// Wire envelopes for outbound bus messages. Field names follow the worker
// contract: flat snake_case records with a request_id correlation field.
// Note the worker expects "topk", not "top_k".

// SearchRequestMessage is published to rag_search_request.
type SearchRequestMessage struct {
	RequestID string `json:"request_id"`
	TraceID   string `json:"trace_id"`
	Query     string `json:"query"`
	TopK      int    `json:"topk"`
	TenantID  string `json:"tenant_id"`
	KBID      string `json:"kb_id"`
}

// AnswerRequestMessage is published to rag_answer_request.
type AnswerRequestMessage struct {
	RequestID string            `json:"request_id"`
	Question  string            `json:"question"`
	Context   []map[string]any  `json:"context"`
	Metadata  map[string]string `json:"metadata"`
}

// DocIngestMessage is published to doc_ingest.
type DocIngestMessage struct {
	DocID    string `json:"doc_id"`
	TenantID string `json:"tenant_id"`
	KBID     string `json:"kb_id"`
	S3Path   string `json:"s3_path"`
	Filename string `json:"filename"`
}

// FailureRecord is the normalised form a worker failure is stored under.
// Pollers and the push channel see this shape regardless of which failure
// format the worker emitted.
type FailureRecord struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Stage        string `json:"stage,omitempty"`
}

// StatusFailed is the status value carried by stored failure records.
const StatusFailed = "failed"

// Marshal serialises the failure record. The error cannot realistically
// occur for this struct; callers may treat a failure as internal.
func (f FailureRecord) Marshal() ([]byte, error) {
	return json.Marshal(f)
}
