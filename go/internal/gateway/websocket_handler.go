package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests from queue screens
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	views             ViewProvider
}

func NewWebSocketHandler(cm *ConnectionManager, views ViewProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		views:             views,
	}
}

// HandleQueueConnection upgrades the request and starts streaming views
func (h *WebSocketHandler) HandleQueueConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.connectionManager.UpgradeConnection(w, r, h.views.CurrentView()); err != nil {
		// the upgrader has already written the HTTP error
		log.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()
	stats["service"] = "queue_gateway"

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/queue", h.HandleQueueConnection)
	mux.HandleFunc("/api/stats", h.HandleConnectionStats)
}
