package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ivis-ai/rag-gateway/internal/core"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandlers reports gateway liveness. The result store is the one
// dependency the pipeline cannot degrade around, so its health gates the
// check; everything else is best effort.
type HealthHandlers struct {
	Cache core.CacheRepository
}

// Health answers 200 while the result store is reachable, 503 otherwise.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.Cache.Health(ctx); err != nil {
			WriteError(w, ErrorParams{
				Code:    http.StatusServiceUnavailable,
				ErrCode: "cache_unhealthy",
				Err:     err,
			})
			return
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
