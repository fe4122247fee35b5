package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	"github.com/ivis-ai/rag-gateway/internal/service"
)

// RagHandlers provides HTTP handlers for dispatching RAG requests and
// polling their results.
type RagHandlers struct {
	Dispatch *service.DispatchService
	Results  *service.ResultService
	// History is optional; without it answer requests are dispatched
	// without conversation context.
	History *service.ChatHistoryService
}

type searchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
	KBID      string `json:"kb_id"`
	SessionID string `json:"session_id"`
}

type answerRequest struct {
	Question  string           `json:"question"`
	Context   []map[string]any `json:"context"`
	SessionID string           `json:"session_id"`
}

type ingestRequest struct {
	DocID    string `json:"doc_id"`
	KBID     string `json:"kb_id"`
	S3Path   string `json:"s3_path"`
	Filename string `json:"filename"`
}

type dispatchResponse struct {
	RequestID string `json:"request_id"`
}

type answerResponse struct {
	RequestID string `json:"request_id"`
	// SessionID echoes the chat session the question was recorded under,
	// including a freshly created one when the request named none.
	SessionID string `json:"session_id,omitempty"`
}

type searchAndAnswerResponse struct {
	SearchRequestID string `json:"search_request_id"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

type resultResponse struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Search dispatches a semantic search request and returns its correlation id.
func (h *RagHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ident, _ := IdentityFromContext(r.Context())
	requestID, err := h.Dispatch.DispatchSearch(r.Context(), ident, req.SessionID, model.SearchPayload{
		Query: req.Query,
		TopK:  req.TopK,
		KBID:  req.KBID,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, dispatchResponse{RequestID: requestID})
}

// Answer dispatches an answer-generation request. The question is recorded
// into the chat session named by the request, creating a new session when
// it names none, and prefixed with the session's recent turns before
// dispatch. The response echoes the session id so a polling-only client
// can keep the conversation going.
func (h *RagHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sessionID := req.SessionID
	question := req.Question
	if h.History != nil && question != "" {
		question = h.History.QuestionWithHistory(r.Context(), sessionID, question)
		sessionID = h.History.RecordQuestion(r.Context(), sessionID, req.Question)
	}

	ident, _ := IdentityFromContext(r.Context())
	requestID, err := h.Dispatch.DispatchAnswer(r.Context(), ident, sessionID, model.AnswerPayload{
		Question: question,
		Context:  req.Context,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, answerResponse{RequestID: requestID, SessionID: sessionID})
}

// Ingest dispatches a document ingest request and returns the document id.
func (h *RagHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ident, _ := IdentityFromContext(r.Context())
	docID, err := h.Dispatch.DispatchIngest(r.Context(), ident, model.IngestPayload{
		DocID:    req.DocID,
		KBID:     req.KBID,
		S3Path:   req.S3Path,
		Filename: req.Filename,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"doc_id": docID})
}

// SearchAndAnswer kicks off the two-step flow with one call: it dispatches
// the search and tells the caller how to feed the hits into an answer
// request. No session binding happens here; the follow-up answer call
// carries the session.
func (h *RagHandlers) SearchAndAnswer(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ident, _ := IdentityFromContext(r.Context())
	requestID, err := h.Dispatch.DispatchSearch(r.Context(), ident, "", model.SearchPayload{
		Query: req.Query,
		TopK:  req.TopK,
		KBID:  req.KBID,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, searchAndAnswerResponse{
		SearchRequestID: requestID,
		Status:          string(model.ResultProcessing),
		Message: "Search initiated. Use /api/rag/result/{requestId} to get search results, " +
			"then call /api/rag/answer with the context.",
	})
}

// Result reports the current state of a dispatched request. A request
// whose result has not arrived yet answers 404 with a processing body;
// callers poll until the status turns terminal.
func (h *RagHandlers) Result(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")

	res, err := h.Results.Poll(r.Context(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	body := resultResponse{
		RequestID: requestID,
		Status:    string(res.Status),
		Payload:   res.Payload,
		Error:     res.ErrorMessage,
	}
	if !res.IsReady() {
		WriteJSON(w, http.StatusNotFound, body)
		return
	}
	WriteJSON(w, http.StatusOK, body)
}
