package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	apperrors "github.com/ivis-ai/rag-gateway/internal/errors"
	"github.com/ivis-ai/rag-gateway/internal/mocks"
)

func newDispatchFixture(t *testing.T) (*DispatchService, *mocks.MockPublisher, *mocks.MockCacheRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := NewDispatchService(DispatchServiceOptions{
		Publisher: publisher,
		Bindings:  core.NewBindingStore(core.BindingStoreOptions{Cache: cache}),
	})
	return svc, publisher, cache
}

func TestDispatchSearchPublishesWireFormat(t *testing.T) {
	svc, publisher, _ := newDispatchFixture(t)
	ident := auth.Identity{Subject: "alice"}

	var captured []byte
	var capturedKey string
	publisher.EXPECT().
		Publish(gomock.Any(), model.TopicSearchRequest, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, key string, payload []byte) error {
			capturedKey = key
			captured = payload
			return nil
		})

	requestID, err := svc.DispatchSearch(context.Background(), ident, "", model.SearchPayload{
		Query: "what is a binding",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(requestID)
	require.NoError(t, err, "request id must be a UUID")
	assert.Equal(t, requestID, capturedKey, "correlation id is the ordering key")

	var msg map[string]any
	require.NoError(t, json.Unmarshal(captured, &msg))
	assert.Equal(t, requestID, msg["request_id"])
	assert.Equal(t, "what is a binding", msg["query"])
	assert.Equal(t, float64(5), msg["topk"], "default search depth")
	assert.Equal(t, "tenant-alice", msg["tenant_id"])
	assert.Equal(t, model.DefaultKBID, msg["kb_id"])
	assert.NotEmpty(t, msg["trace_id"])
	assert.NotContains(t, msg, "top_k")
}

func TestDispatchSearchBindsBeforePublish(t *testing.T) {
	svc, publisher, cache := newDispatchFixture(t)

	var requestID string
	bind := cache.EXPECT().
		Set(gomock.Any(), gomock.Any(), []byte("sess-1"), core.DefaultBindingTTL).
		DoAndReturn(func(_ context.Context, key string, _ []byte, _ time.Duration) error {
			requestID = key[len("binding:"):]
			return nil
		})
	var publishKey string
	publish := publisher.EXPECT().
		Publish(gomock.Any(), model.TopicSearchRequest, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, key string, _ []byte) error {
			publishKey = key
			return nil
		})
	gomock.InOrder(bind, publish)

	got, err := svc.DispatchSearch(context.Background(), auth.Identity{Subject: "alice"}, "sess-1",
		model.SearchPayload{Query: "q", TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, got, requestID, "bound key must match the returned correlation id")
	assert.Equal(t, got, publishKey)
}

func TestDispatchSearchBindFailureFailsDispatch(t *testing.T) {
	svc, _, cache := newDispatchFixture(t)

	cache.EXPECT().
		Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("redis down"))

	// No Publish expectation: a request with an unwritable binding must not
	// reach the bus, or a worker reply would arrive with no routable session.
	_, err := svc.DispatchSearch(context.Background(), auth.Identity{Subject: "alice"}, "sess-1",
		model.SearchPayload{Query: "q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestDispatchSearchValidation(t *testing.T) {
	svc, _, _ := newDispatchFixture(t)

	_, err := svc.DispatchSearch(context.Background(), auth.Identity{}, "", model.SearchPayload{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDispatchSearchCapsTopK(t *testing.T) {
	svc, publisher, _ := newDispatchFixture(t)

	var captured []byte
	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, payload []byte) error {
			captured = payload
			return nil
		})

	_, err := svc.DispatchSearch(context.Background(), auth.Identity{Subject: "a"}, "",
		model.SearchPayload{Query: "q", TopK: 500})
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(captured, &msg))
	assert.Equal(t, float64(maxTopK), msg["topk"])
}

func TestDispatchBusFailureIsUnavailable(t *testing.T) {
	svc, publisher, _ := newDispatchFixture(t)

	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("stream write refused"))

	_, err := svc.DispatchSearch(context.Background(), auth.Identity{Subject: "a"}, "",
		model.SearchPayload{Query: "q"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestDispatchAnswerCarriesTenantMetadata(t *testing.T) {
	svc, publisher, _ := newDispatchFixture(t)

	var captured []byte
	publisher.EXPECT().
		Publish(gomock.Any(), model.TopicAnswerRequest, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, payload []byte) error {
			captured = payload
			return nil
		})

	requestID, err := svc.DispatchAnswer(context.Background(), auth.Identity{}, "",
		model.AnswerPayload{
			Question: "why",
			Context:  []map[string]any{{"text": "because"}},
		})
	require.NoError(t, err)

	var msg model.AnswerRequestMessage
	require.NoError(t, json.Unmarshal(captured, &msg))
	assert.Equal(t, requestID, msg.RequestID)
	assert.Equal(t, "why", msg.Question)
	assert.Equal(t, auth.AnonymousTenant, msg.Metadata["tenant"], "no subject falls back to anonymous tenant")
	require.Len(t, msg.Context, 1)
}

func TestDispatchAnswerValidation(t *testing.T) {
	svc, _, _ := newDispatchFixture(t)

	_, err := svc.DispatchAnswer(context.Background(), auth.Identity{}, "", model.AnswerPayload{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDispatchIngest(t *testing.T) {
	svc, publisher, _ := newDispatchFixture(t)

	var captured []byte
	publisher.EXPECT().
		Publish(gomock.Any(), model.TopicDocIngest, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, payload []byte) error {
			captured = payload
			return nil
		})

	docID, err := svc.DispatchIngest(context.Background(), auth.Identity{Subject: "bob"},
		model.IngestPayload{S3Path: "uploads/report.pdf", Filename: "report.pdf"})
	require.NoError(t, err)
	require.NotEmpty(t, docID)

	var msg model.DocIngestMessage
	require.NoError(t, json.Unmarshal(captured, &msg))
	assert.Equal(t, docID, msg.DocID)
	assert.Equal(t, "tenant-bob", msg.TenantID)
	assert.Equal(t, model.DefaultKBID, msg.KBID)
	assert.Equal(t, "uploads/report.pdf", msg.S3Path)
}

func TestDispatchIngestValidation(t *testing.T) {
	svc, _, _ := newDispatchFixture(t)

	_, err := svc.DispatchIngest(context.Background(), auth.Identity{}, model.IngestPayload{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
