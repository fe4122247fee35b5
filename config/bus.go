package config

import "time"

// BusConfig contains message bus (Redis Streams) configuration.
type BusConfig struct {
	// Group is the consumer group name shared by all gateway instances.
	Group string `env:"BUS_GROUP" envDefault:"backend-api"`

	// Consumer is this instance's consumer name within the group.
	// Defaults to the hostname when empty (resolved in bootstrap).
	Consumer string `env:"BUS_CONSUMER" envDefault:""`

	// Block is how long a read against the bus blocks waiting for messages.
	Block time.Duration `env:"BUS_BLOCK" envDefault:"5s"`

	// StoreRetryAttempts is the number of result store write attempts per
	// message before the message is left unacknowledged for redelivery.
	StoreRetryAttempts int `env:"BUS_STORE_RETRY_ATTEMPTS" envDefault:"3"`

	// ClaimMinIdle is the minimum idle time before a pending entry owned by
	// a dead consumer is reclaimed by this instance.
	ClaimMinIdle time.Duration `env:"BUS_CLAIM_MIN_IDLE" envDefault:"1m"`

	// MaxStreamLen caps outbound stream length (approximate trim). Zero
	// disables trimming.
	MaxStreamLen int64 `env:"BUS_MAX_STREAM_LEN" envDefault:"10000"`
}

// Sanitize applies guardrails to bus configuration values.
func (b *BusConfig) Sanitize() {
	if b.Group == "" {
		b.Group = "backend-api"
	}
	if b.Block <= 0 {
		b.Block = 5 * time.Second
	}
	if b.StoreRetryAttempts < 1 {
		b.StoreRetryAttempts = 3
	}
	if b.ClaimMinIdle <= 0 {
		b.ClaimMinIdle = time.Minute
	}
	if b.MaxStreamLen < 0 {
		b.MaxStreamLen = 0
	}
}
