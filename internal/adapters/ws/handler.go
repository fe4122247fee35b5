package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ivis-ai/rag-gateway/internal/observability/metrics"
	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
	"github.com/ivis-ai/rag-gateway/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// sessionCreatedMessage is the first frame sent to a client that connected
// without a session identifier.
type sessionCreatedMessage struct {
	Action    string `json:"action"`
	SessionID string `json:"sessionId"`
}

// HandlerOptions bundles dependencies for NewHandler.
type HandlerOptions struct {
	Registry *service.SessionRegistry
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Handler upgrades GET /ws/chat requests and keeps the connection
// registered for pushes until the client goes away.
type Handler struct {
	registry *service.SessionRegistry
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewHandler constructs a websocket Handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.Registry == nil {
		panic("SessionRegistry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: opts.Registry,
		logger:   logger.With("component", "ws"),
		metrics:  opts.Metrics,
	}
}

// ServeHTTP handles the websocket session lifecycle: upgrade, register,
// hold, unregister. The channel is push-only; inbound frames are read
// solely to detect disconnection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	generated := sessionID == ""
	if generated {
		sessionID = uuid.New().String()
	}

	c := newConn(wsConn)
	defer c.Close()

	if generated {
		msg, _ := json.Marshal(sessionCreatedMessage{
			Action:    "session_created",
			SessionID: sessionID,
		})
		if err := c.Send(msg); err != nil {
			h.logger.Warn("failed to send session id", "session_id", sessionID, "error", err)
			return
		}
	}

	h.registry.Add(sessionID, c)
	defer func() {
		h.registry.Remove(sessionID, c)
		metrics.EmitSessionGauge(h.metrics, h.registry.Count())
	}()
	metrics.EmitSessionGauge(h.metrics, h.registry.Count())

	h.logger.Info("websocket session connected", "session_id", sessionID)

	for {
		if _, _, err := wsConn.NextReader(); err != nil {
			h.logger.Info("websocket session disconnected", "session_id", sessionID, "error", err)
			return
		}
	}
}
