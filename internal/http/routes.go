package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Dispatch *service.DispatchService
	Results  *service.ResultService
	History  *service.ChatHistoryService
	// Verifier guards the API routes. Optional; without it the API is open
	// and every caller is anonymous (development only).
	Verifier core.TokenVerifier
	// WS is the live chat channel endpoint. Optional.
	WS    http.Handler
	Cache core.CacheRepository
	// Logger for request logging and panic recovery (optional).
	Logger *slog.Logger
}

// NewRouter creates and configures the gateway's HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	ragHandlers := &RagHandlers{
		Dispatch: services.Dispatch,
		Results:  services.Results,
		History:  services.History,
	}
	registerRagRoutes(mux, ragHandlers, services.Verifier)

	healthHandlers := &HealthHandlers{Cache: services.Cache}
	mux.HandleFunc("GET /healthz", healthHandlers.Health)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Health)

	// The websocket handshake carries no Authorization header from browser
	// clients, so the chat channel sits outside the bearer middleware.
	// Sessions only ever receive results for requests they dispatched.
	if services.WS != nil {
		mux.Handle("GET /ws/chat", services.WS)
	}

	return Recover(logger)(Logging(logger)(mux))
}

func registerRagRoutes(mux *http.ServeMux, h *RagHandlers, verifier core.TokenVerifier) {
	wrap := func(hf http.HandlerFunc) http.Handler {
		if verifier != nil {
			return RequireBearer(verifier)(hf)
		}
		return hf
	}

	mux.Handle("POST /api/rag/search", wrap(h.Search))
	mux.Handle("POST /api/rag/answer", wrap(h.Answer))
	mux.Handle("POST /api/rag/search-and-answer", wrap(h.SearchAndAnswer))
	mux.Handle("POST /api/rag/ingest", wrap(h.Ingest))
	mux.Handle("GET /api/rag/result/{requestId}", wrap(h.Result))
}
