// Package bus adapts Redis Streams into the gateway's message bus: a
// producer for outbound request topics and a consumer-group runner for
// inbound result topics.
package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ivis-ai/rag-gateway/internal/core"
)

// Stream entry field names. The payload field carries the JSON message
// body; the key field carries the ordering key and is recorded for
// debugging pending entries.
const (
	fieldKey     = "key"
	fieldPayload = "payload"
)

// StreamProducer publishes messages onto Redis Streams. Entries on one
// stream are totally ordered, which gives messages sharing an ordering
// key in-order delivery as long as one runner reads the stream.
type StreamProducer struct {
	client redis.UniversalClient
	maxLen int64
}

var _ core.Publisher = (*StreamProducer)(nil)

// StreamProducerOptions bundles dependencies for NewStreamProducer.
type StreamProducerOptions struct {
	Client redis.UniversalClient

	// MaxStreamLen caps stream length with approximate trimming.
	// Zero disables trimming.
	MaxStreamLen int64
}

// NewStreamProducer constructs a StreamProducer.
func NewStreamProducer(opts StreamProducerOptions) *StreamProducer {
	if opts.Client == nil {
		panic("redis client is required")
	}
	return &StreamProducer{client: opts.Client, maxLen: opts.MaxStreamLen}
}

// Publish appends a message to the topic's stream.
func (p *StreamProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if topic == "" {
		return errors.New("topic cannot be empty")
	}
	if len(payload) == 0 {
		return errors.New("payload cannot be empty")
	}

	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			fieldKey:     key,
			fieldPayload: string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
