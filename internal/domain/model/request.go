// Package model contains the domain types exchanged between the gateway,
// the message bus, and the worker pool.
package model

// RequestKind identifies the type of computation requested from the worker pool.
type RequestKind string

const (
	// KindIngest requests ingestion of an uploaded document.
	KindIngest RequestKind = "ingest"
	// KindSearch requests a semantic search over a knowledge base.
	KindSearch RequestKind = "search"
	// KindAnswer requests answer generation from search context.
	KindAnswer RequestKind = "answer"
)

// Valid returns true if the request kind is one of the known kinds.
func (k RequestKind) Valid() bool {
	switch k {
	case KindIngest, KindSearch, KindAnswer:
		return true
	default:
		return false
	}
}

// Bus topic names. Outbound topics are produced by the dispatcher and
// consumed by the worker pool; inbound topics flow the other way. The names
// are part of the worker boundary contract and must not change without a
// coordinated worker release.
const (
	TopicDocIngest     = "doc_ingest"
	TopicSearchRequest = "rag_search_request"
	TopicAnswerRequest = "rag_answer_request"

	TopicSearchResult = "rag_search_result"
	TopicAnswerResult = "rag_answer_result"
	TopicFailed       = "rag_failed"
)

// Topic returns the outbound bus topic for the request kind.
func (k RequestKind) Topic() string {
	switch k {
	case KindIngest:
		return TopicDocIngest
	case KindSearch:
		return TopicSearchRequest
	case KindAnswer:
		return TopicAnswerRequest
	default:
		return ""
	}
}

// InboundTopics lists the topics the result consumer subscribes to.
func InboundTopics() []string {
	return []string{TopicSearchResult, TopicAnswerResult, TopicFailed}
}

// DefaultKBID is the knowledge base used when a caller does not name one.
const DefaultKBID = "kb-001"

// SearchPayload is the kind-specific payload for a search dispatch.
type SearchPayload struct {
	Query string
	TopK  int
	KBID  string
}

// AnswerPayload is the kind-specific payload for an answer dispatch.
// Context carries the search hits the caller wants the answer grounded on.
type AnswerPayload struct {
	Question string
	Context  []map[string]any
}

// IngestPayload is the kind-specific payload for a document ingest dispatch.
type IngestPayload struct {
	DocID    string
	KBID     string
	S3Path   string
	Filename string
}
