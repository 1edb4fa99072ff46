// Package api is the HTTP surface for the agent actions service.
package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/dispatch"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Dispatcher *dispatch.Dispatcher
	Extractor  *identity.Extractor
	Logger     *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Tool execution (auth required via Bearer session token)
	mux.HandleFunc("POST /v1/agent/actions", deps.authMiddleware(deps.handleExecute))

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
