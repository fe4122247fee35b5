package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
)

// historyWindow is how many recent turns are folded into a question.
const historyWindow = 10

// ChatHistoryServiceOptions groups dependencies for ChatHistoryService.
type ChatHistoryServiceOptions struct {
	Repo     core.ChatHistoryRepository
	Bindings *core.BindingStore
	Logger   *slog.Logger
}

// ChatHistoryService persists conversation turns around answer requests.
// The history store is externally owned and written best effort: a failed
// write is logged and never blocks dispatch or result handling.
type ChatHistoryService struct {
	repo     core.ChatHistoryRepository
	bindings *core.BindingStore
	logger   *slog.Logger
}

// NewChatHistoryService constructs a new ChatHistoryService.
func NewChatHistoryService(opts ChatHistoryServiceOptions) *ChatHistoryService {
	if opts.Repo == nil {
		panic("ChatHistoryRepository is required")
	}
	if opts.Bindings == nil {
		panic("BindingStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHistoryService{
		repo:     opts.Repo,
		bindings: opts.Bindings,
		logger:   logger.With("component", "chat_history"),
	}
}

// RecordQuestion ensures the session exists and appends the user's
// question. A request naming no session gets a freshly created one; the
// returned session id is what the turn was recorded under, so callers
// hand it back to the client. The session title is derived from the
// first question.
func (s *ChatHistoryService) RecordQuestion(ctx context.Context, sessionID, question string) string {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if _, err := s.repo.EnsureSession(ctx, sessionID, model.SessionTitle(question)); err != nil {
		s.logger.WarnContext(ctx, "ensure chat session failed", "session_id", sessionID, "error", err)
		return sessionID
	}
	if err := s.repo.Append(ctx, &model.ChatMessage{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   question,
	}); err != nil {
		s.logger.WarnContext(ctx, "append user message failed", "session_id", sessionID, "error", err)
	}
	return sessionID
}

// QuestionWithHistory prefixes a question with the session's recent turns
// so the answer worker sees the conversation. Without history, or when
// listing fails, the question passes through unchanged.
func (s *ChatHistoryService) QuestionWithHistory(ctx context.Context, sessionID, question string) string {
	if sessionID == "" {
		return question
	}

	msgs, err := s.repo.ListRecent(ctx, sessionID, historyWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "list chat history failed", "session_id", sessionID, "error", err)
		return question
	}
	if len(msgs) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("History:\n")
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent Question:\n")
	b.WriteString(question)
	return b.String()
}

// RecordAnswer appends a completed answer to the chat history of the
// session bound to requestID. Called detached from the result consumer.
func (s *ChatHistoryService) RecordAnswer(ctx context.Context, requestID string, payload []byte) {
	sessionID, err := s.bindings.Lookup(ctx, requestID)
	if err != nil || sessionID == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "binding lookup failed", "request_id", requestID, "error", err)
		}
		return
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(payload, &result); err != nil || result.Answer == "" {
		return
	}

	if err := s.repo.Append(ctx, &model.ChatMessage{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   result.Answer,
	}); err != nil {
		s.logger.WarnContext(ctx, "append assistant message failed",
			"request_id", requestID, "session_id", sessionID, "error", err)
	}
}
