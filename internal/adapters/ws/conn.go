// Package ws adapts gorilla/websocket connections into the session
// registry's push channel.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivis-ai/rag-gateway/internal/core"
)

// writeTimeout bounds a single push write so one dead client cannot
// stall the sender.
const writeTimeout = 10 * time.Second

// conn wraps a websocket connection with a write mutex. gorilla/websocket
// permits only one concurrent writer; pushes and control frames both go
// through Send/Close.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

var _ core.SessionConn = (*conn)(nil)

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

// Send writes one text frame containing the payload.
func (c *conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame and tears down the connection.
func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}
