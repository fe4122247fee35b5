// Package service implements the business operations of the gateway:
// request dispatch, result polling, push notification, session tracking,
// and chat history.
package service

import (
	"sync"
	"sync/atomic"

	"github.com/ivis-ai/rag-gateway/internal/core"
)

// SessionRegistry tracks live push connections by session identifier.
// It is an injected dependency of the websocket handler and the push
// notifier, never package-level state, so tests can run registries in
// isolation. All methods are safe for concurrent use.
type SessionRegistry struct {
	conns sync.Map // sessionID -> core.SessionConn
	count atomic.Int64
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// Add registers a connection under the session identifier. A reconnect
// with the same identifier replaces the previous connection, which is
// closed so it cannot leak.
func (r *SessionRegistry) Add(sessionID string, conn core.SessionConn) {
	if sessionID == "" || conn == nil {
		return
	}
	prev, loaded := r.conns.Swap(sessionID, conn)
	if loaded {
		if old, ok := prev.(core.SessionConn); ok && old != conn {
			_ = old.Close()
		}
		return
	}
	r.count.Add(1)
}

// Remove drops the registration for sessionID if conn is still the
// registered connection. A stale remove after a reconnect is a no-op.
func (r *SessionRegistry) Remove(sessionID string, conn core.SessionConn) {
	cur, ok := r.conns.Load(sessionID)
	if !ok {
		return
	}
	if c, isConn := cur.(core.SessionConn); isConn && c != conn {
		return
	}
	if r.conns.CompareAndDelete(sessionID, cur) {
		r.count.Add(-1)
	}
}

// Get returns the live connection for sessionID, or nil when the session
// is not connected to this instance.
func (r *SessionRegistry) Get(sessionID string) core.SessionConn {
	v, ok := r.conns.Load(sessionID)
	if !ok {
		return nil
	}
	conn, _ := v.(core.SessionConn)
	return conn
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	return int(r.count.Load())
}
