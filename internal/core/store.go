package core

import (
	"context"
	"fmt"
	"time"
)

// Cache key namespaces. Results and bindings share one cache store and are
// told apart by prefix.
const (
	resultKeyPrefix  = "result:"
	bindingKeyPrefix = "binding:"
)

// DefaultResultTTL bounds how long a stored result stays pollable.
const DefaultResultTTL = 10 * time.Minute

// DefaultBindingTTL bounds how long a correlation-to-session binding stays
// routable. It is deliberately longer than the result TTL so a slow worker
// reply can still be pushed.
const DefaultBindingTTL = 30 * time.Minute

// ResultStore persists worker results keyed by correlation identifier.
// It is the single source of truth a polling client reads from.
type ResultStore struct {
	cache CacheRepository
	ttl   time.Duration
}

// ResultStoreOptions bundles dependencies for NewResultStore.
type ResultStoreOptions struct {
	Cache CacheRepository
	TTL   time.Duration
}

// NewResultStore constructs a ResultStore.
func NewResultStore(opts ResultStoreOptions) *ResultStore {
	if opts.Cache == nil {
		panic("CacheRepository is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultStore{cache: opts.Cache, ttl: ttl}
}

// Put stores a result payload. Duplicate puts for the same correlation
// identifier overwrite; redelivered messages carry equivalent content so
// the overwrite is harmless.
func (s *ResultStore) Put(ctx context.Context, correlationID string, payload []byte) error {
	if correlationID == "" {
		return fmt.Errorf("correlation id cannot be empty")
	}
	if err := s.cache.Set(ctx, resultKeyPrefix+correlationID, payload, s.ttl); err != nil {
		return fmt.Errorf("store result %s: %w", correlationID, err)
	}
	return nil
}

// Get retrieves a stored result payload. Returns nil when no result exists,
// which callers report as "not ready" rather than an error.
func (s *ResultStore) Get(ctx context.Context, correlationID string) ([]byte, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("correlation id cannot be empty")
	}
	payload, err := s.cache.Get(ctx, resultKeyPrefix+correlationID)
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", correlationID, err)
	}
	return payload, nil
}

// BindingStore persists correlation-to-session bindings. A binding is
// written once, before the request is published, and only ever expires.
type BindingStore struct {
	cache CacheRepository
	ttl   time.Duration
}

// BindingStoreOptions bundles dependencies for NewBindingStore.
type BindingStoreOptions struct {
	Cache CacheRepository
	TTL   time.Duration
}

// NewBindingStore constructs a BindingStore.
func NewBindingStore(opts BindingStoreOptions) *BindingStore {
	if opts.Cache == nil {
		panic("CacheRepository is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultBindingTTL
	}
	return &BindingStore{cache: opts.Cache, ttl: ttl}
}

// Bind records that results for correlationID should be pushed to sessionID.
func (s *BindingStore) Bind(ctx context.Context, correlationID, sessionID string) error {
	if correlationID == "" || sessionID == "" {
		return fmt.Errorf("correlation id and session id cannot be empty")
	}
	if err := s.cache.Set(ctx, bindingKeyPrefix+correlationID, []byte(sessionID), s.ttl); err != nil {
		return fmt.Errorf("bind %s: %w", correlationID, err)
	}
	return nil
}

// Lookup returns the session bound to correlationID, or "" when the binding
// never existed or has expired.
func (s *BindingStore) Lookup(ctx context.Context, correlationID string) (string, error) {
	if correlationID == "" {
		return "", fmt.Errorf("correlation id cannot be empty")
	}
	v, err := s.cache.Get(ctx, bindingKeyPrefix+correlationID)
	if err != nil {
		return "", fmt.Errorf("lookup binding %s: %w", correlationID, err)
	}
	return string(v), nil
}
