package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	"github.com/ivis-ai/rag-gateway/internal/mocks"
)

func newHistoryFixture(t *testing.T) (*ChatHistoryService, *mocks.MockChatHistoryRepository, *mocks.MockCacheRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockChatHistoryRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := NewChatHistoryService(ChatHistoryServiceOptions{
		Repo:     repo,
		Bindings: core.NewBindingStore(core.BindingStoreOptions{Cache: cache}),
	})
	return svc, repo, cache
}

func TestRecordQuestion(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)
	ctx := context.Background()

	repo.EXPECT().
		EnsureSession(gomock.Any(), "sess-1", "What is semantic search?").
		Return(&model.ChatSession{ID: "sess-1"}, nil)
	repo.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *model.ChatMessage) error {
			assert.Equal(t, "sess-1", msg.SessionID)
			assert.Equal(t, model.RoleUser, msg.Role)
			assert.Equal(t, "What is semantic search?", msg.Content)
			return nil
		})

	got := svc.RecordQuestion(ctx, "sess-1", "What is semantic search?")
	assert.Equal(t, "sess-1", got)
}

func TestRecordQuestionTruncatesTitle(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	long := "a question much longer than the title limit allows"
	repo.EXPECT().
		EnsureSession(gomock.Any(), "sess-1", model.SessionTitle(long)).
		Return(&model.ChatSession{ID: "sess-1"}, nil)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	svc.RecordQuestion(context.Background(), "sess-1", long)
}

func TestRecordQuestionSwallowsErrors(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	repo.EXPECT().
		EnsureSession(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down"))

	// Must not panic and must not call Append.
	svc.RecordQuestion(context.Background(), "sess-1", "q")
}

func TestRecordQuestionCreatesSessionWhenMissing(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	var created string
	repo.EXPECT().
		EnsureSession(gomock.Any(), gomock.Any(), "q").
		DoAndReturn(func(_ context.Context, id, _ string) (*model.ChatSession, error) {
			created = id
			return &model.ChatSession{ID: id}, nil
		})
	repo.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *model.ChatMessage) error {
			assert.Equal(t, created, msg.SessionID)
			return nil
		})

	got := svc.RecordQuestion(context.Background(), "", "q")
	require.NotEmpty(t, got)
	assert.Equal(t, created, got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestQuestionWithHistory(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	repo.EXPECT().
		ListRecent(gomock.Any(), "sess-1", historyWindow).
		Return([]*model.ChatMessage{
			{Role: model.RoleUser, Content: "hello"},
			{Role: model.RoleAssistant, Content: "hi there"},
		}, nil)

	got := svc.QuestionWithHistory(context.Background(), "sess-1", "and now?")
	want := "History:\nuser: hello\nassistant: hi there\n\nCurrent Question:\nand now?"
	assert.Equal(t, want, got)
}

func TestQuestionWithHistoryEmpty(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	repo.EXPECT().ListRecent(gomock.Any(), "sess-1", historyWindow).Return(nil, nil)

	got := svc.QuestionWithHistory(context.Background(), "sess-1", "first question")
	assert.Equal(t, "first question", got)
}

func TestQuestionWithHistoryListFailure(t *testing.T) {
	svc, repo, _ := newHistoryFixture(t)

	repo.EXPECT().
		ListRecent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down"))

	got := svc.QuestionWithHistory(context.Background(), "sess-1", "q")
	assert.Equal(t, "q", got, "history failure must not lose the question")
}

func TestRecordAnswer(t *testing.T) {
	svc, repo, cache := newHistoryFixture(t)

	cache.EXPECT().Get(gomock.Any(), "binding:req-1").Return([]byte("sess-1"), nil)
	repo.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *model.ChatMessage) error {
			assert.Equal(t, "sess-1", msg.SessionID)
			assert.Equal(t, model.RoleAssistant, msg.Role)
			assert.Equal(t, "42", msg.Content)
			return nil
		})

	svc.RecordAnswer(context.Background(), "req-1", []byte(`{"request_id":"req-1","answer":"42"}`))
}

func TestRecordAnswerNoBinding(t *testing.T) {
	svc, _, cache := newHistoryFixture(t)

	cache.EXPECT().Get(gomock.Any(), "binding:req-1").Return(nil, nil)

	// Unbound answers are dropped without touching the repo.
	svc.RecordAnswer(context.Background(), "req-1", []byte(`{"answer":"42"}`))
}

func TestRecordAnswerIgnoresPayloadWithoutAnswer(t *testing.T) {
	svc, _, cache := newHistoryFixture(t)

	cache.EXPECT().Get(gomock.Any(), "binding:req-1").Return([]byte("sess-1"), nil)

	svc.RecordAnswer(context.Background(), "req-1", []byte(`{"status":"OK"}`))
}

func TestRecordAnswerAppendFailureIsSwallowed(t *testing.T) {
	svc, repo, cache := newHistoryFixture(t)

	cache.EXPECT().Get(gomock.Any(), "binding:req-1").Return([]byte("sess-1"), nil)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	require.NotPanics(t, func() {
		svc.RecordAnswer(context.Background(), "req-1", []byte(`{"answer":"42"}`))
	})
}
