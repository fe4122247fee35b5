// Package core provides the business logic and port definitions for the
// request/result correlation pipeline.
package core

import (
	"context"
	"time"

	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
	"github.com/ivis-ai/rag-gateway/internal/domain/model"
)

// This file contains the port interfaces (hexagonal architecture).
// Service implementations depend on these interfaces, not on the Redis,
// Postgres, or OIDC adapters that implement them.

// CacheRepository defines the interface for the durable TTL-bounded
// key-value store backing results and bindings.
type CacheRepository interface {
	// Set stores a value with the given key and TTL. Writing an existing
	// key overwrites it unconditionally; the pipeline's idempotency under
	// redelivery depends on this being a pure upsert.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// Publisher defines the interface for producing messages onto the bus.
// Key is the partition/ordering key; messages sharing a key are delivered
// in order to a single consumer instance.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// ChatHistoryRepository defines the interface for the externally-owned,
// time-ordered chat history store.
type ChatHistoryRepository interface {
	// EnsureSession creates the session if it does not exist and returns it.
	// Creating an already-existing session is not an error.
	EnsureSession(ctx context.Context, id, title string) (*model.ChatSession, error)

	// Append adds one message to a session's history.
	Append(ctx context.Context, msg *model.ChatMessage) error

	// ListRecent returns up to limit messages for a session in
	// chronological order, newest window first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// SessionConn is a live push channel to one connected client. Send must be
// safe for concurrent use; implementations serialise writes internally.
type SessionConn interface {
	Send(payload []byte) error
	Close() error
}

// TokenVerifier validates a caller's bearer token and yields its identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (auth.Identity, error)
}
