package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ivis-ai/rag-gateway/config"
	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/data"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	"github.com/ivis-ai/rag-gateway/internal/mocks"
	"github.com/ivis-ai/rag-gateway/internal/testutil"
)

// captureNotifier records push notifications for assertions.
type captureNotifier struct {
	mu    sync.Mutex
	calls map[string][]byte
	seen  chan string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		calls: make(map[string][]byte),
		seen:  make(chan string, 16),
	}
}

func (c *captureNotifier) NotifyResult(_ context.Context, requestID string, payload []byte) {
	c.mu.Lock()
	c.calls[requestID] = payload
	c.mu.Unlock()
	c.seen <- requestID
}

func busTestConfig() config.BusConfig {
	return config.BusConfig{
		Group:              "backend-api",
		Consumer:           "test-consumer",
		Block:              100 * time.Millisecond,
		StoreRetryAttempts: 3,
		ClaimMinIdle:       time.Minute,
	}
}

func TestStreamProducerPublish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	producer := NewStreamProducer(StreamProducerOptions{Client: client, MaxStreamLen: 100})
	ctx := context.Background()

	msg := model.SearchRequestMessage{
		RequestID: "req-1",
		TraceID:   "tr-1",
		Query:     "what is a correlation id",
		TopK:      5,
		TenantID:  "tenant-alice",
		KBID:      model.DefaultKBID,
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, producer.Publish(ctx, model.TopicSearchRequest, "sess-1", payload))

	entries, err := client.XRange(ctx, model.TopicSearchRequest, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].Values["key"])
	assert.JSONEq(t, string(payload), entries[0].Values["payload"].(string))

	t.Run("rejects empty topic and payload", func(t *testing.T) {
		require.Error(t, producer.Publish(ctx, "", "k", payload))
		require.Error(t, producer.Publish(ctx, model.TopicSearchRequest, "k", nil))
	})
}

func TestRunnerStoresAcksAndNotifies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := data.NewRedisCacheRepo(client)
	results := core.NewResultStore(core.ResultStoreOptions{Cache: cache})
	notifier := newCaptureNotifier()

	runner := NewRunner(RunnerOptions{
		Client:   client,
		Results:  results,
		Config:   busTestConfig(),
		Notifier: notifier,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()

	// A successful worker result.
	success := `{"request_id":"req-ok","trace_id":"tr-1","status":"OK","results":[{"text":"hit"}]}`
	_, err := client.XAdd(ctx, argsFor(model.TopicSearchResult, success)).Result()
	require.NoError(t, err)

	// A malformed message without a request_id must be dropped and acked.
	_, err = client.XAdd(ctx, argsFor(model.TopicSearchResult, `{"status":"OK"}`)).Result()
	require.NoError(t, err)

	// A failure in the nested worker format.
	failure := `{"request_id":"req-bad","type":"search","error":{"code":"VECTOR_DOWN","message":"no shards"}}`
	_, err = client.XAdd(ctx, argsFor(model.TopicFailed, failure)).Result()
	require.NoError(t, err)

	waitForNotify(t, notifier, "req-ok")
	waitForNotify(t, notifier, "req-bad")

	stored, err := results.Get(ctx, "req-ok")
	require.NoError(t, err)
	assert.JSONEq(t, success, string(stored))

	stored, err = results.Get(ctx, "req-bad")
	require.NoError(t, err)
	var rec model.FailureRecord
	require.NoError(t, json.Unmarshal(stored, &rec))
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "VECTOR_DOWN", rec.ErrorCode)
	assert.Equal(t, "no shards", rec.ErrorMessage)
	assert.Equal(t, "search", rec.Stage)

	// Everything, including the malformed message, must end up acknowledged.
	assert.Eventually(t, func() bool {
		for _, stream := range model.InboundTopics() {
			pending, perr := client.XPending(ctx, stream, "backend-api").Result()
			if perr != nil || pending.Count != 0 {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond, "expected no pending entries")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after context cancel")
	}
}

func TestRunnerAnswerRecorderOnlyOnAnswers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := data.NewRedisCacheRepo(client)
	results := core.NewResultStore(core.ResultStoreOptions{Cache: cache})
	notifier := newCaptureNotifier()
	recorder := newCaptureRecorder()

	runner := NewRunner(RunnerOptions{
		Client:   client,
		Results:  results,
		Config:   busTestConfig(),
		Notifier: notifier,
		Recorder: recorder,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runner.Run(ctx) }()

	answer := `{"request_id":"req-ans","status":"OK","answer":"42","sources":[]}`
	_, err := client.XAdd(ctx, argsFor(model.TopicAnswerResult, answer)).Result()
	require.NoError(t, err)

	search := `{"request_id":"req-sr","status":"OK","results":[]}`
	_, err = client.XAdd(ctx, argsFor(model.TopicSearchResult, search)).Result()
	require.NoError(t, err)

	waitForNotify(t, notifier, "req-ans")
	waitForNotify(t, notifier, "req-sr")

	assert.Eventually(t, func() bool {
		return recorder.has("req-ans")
	}, 5*time.Second, 50*time.Millisecond)
	assert.False(t, recorder.has("req-sr"), "search results must not reach chat history")
}

func TestRunnerLeavesMessagePendingWhenStoreFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)

	attempts := make(chan struct{}, 8)
	cache.EXPECT().
		Set(gomock.Any(), "result:req-down", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, []byte, time.Duration) error {
			attempts <- struct{}{}
			return assert.AnError
		}).
		Times(3)

	runner := NewRunner(RunnerOptions{
		Client:  client,
		Results: core.NewResultStore(core.ResultStoreOptions{Cache: cache}),
		Config:  busTestConfig(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()

	payload := `{"request_id":"req-down","status":"OK","results":[]}`
	_, err := client.XAdd(ctx, argsFor(model.TopicSearchResult, payload)).Result()
	require.NoError(t, err)

	// All configured store attempts must run before the runner gives up.
	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatalf("store attempt %d never happened", i+1)
		}
	}

	// With the store down the entry must never be acknowledged; it stays
	// pending so a later redelivery or reclaim can retry it.
	assert.Never(t, func() bool {
		pending, perr := client.XPending(ctx, model.TopicSearchResult, "backend-api").Result()
		return perr == nil && pending.Count == 0
	}, time.Second, 50*time.Millisecond, "entry was acknowledged despite the store being down")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after context cancel")
	}
}

func TestRunnerDuplicateDeliveryConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := data.NewRedisCacheRepo(client)
	results := core.NewResultStore(core.ResultStoreOptions{Cache: cache})
	notifier := newCaptureNotifier()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two consumers in the same group, as after a redelivery across
	// instances. The store is a pure upsert, so processing the same
	// result twice must converge on the single-delivery state.
	for _, name := range []string{"dup-consumer-1", "dup-consumer-2"} {
		cfg := busTestConfig()
		cfg.Consumer = name
		runner := NewRunner(RunnerOptions{
			Client:   client,
			Results:  results,
			Config:   cfg,
			Notifier: notifier,
		})
		go func() { _ = runner.Run(ctx) }()
	}

	payload := `{"request_id":"req-dup","status":"OK","results":[{"text":"hit"}]}`
	for i := 0; i < 2; i++ {
		_, err := client.XAdd(ctx, argsFor(model.TopicSearchResult, payload)).Result()
		require.NoError(t, err)
	}

	waitForNotify(t, notifier, "req-dup")
	waitForNotify(t, notifier, "req-dup")

	stored, err := results.Get(ctx, "req-dup")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(stored))

	assert.Eventually(t, func() bool {
		pending, perr := client.XPending(ctx, model.TopicSearchResult, "backend-api").Result()
		return perr == nil && pending.Count == 0
	}, 5*time.Second, 50*time.Millisecond, "both deliveries must end up acknowledged")
}

type captureRecorder struct {
	mu    sync.Mutex
	calls map[string][]byte
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{calls: make(map[string][]byte)}
}

func (c *captureRecorder) RecordAnswer(_ context.Context, requestID string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[requestID] = payload
}

func (c *captureRecorder) has(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.calls[requestID]
	return ok
}

// argsFor builds an XADD in the shape workers publish results with.
func argsFor(stream, payload string) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"key": "", "payload": payload},
	}
}

func waitForNotify(t *testing.T, n *captureNotifier, requestID string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case id := <-n.seen:
			if id == requestID {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for push notification of %s", requestID)
		}
	}
}
