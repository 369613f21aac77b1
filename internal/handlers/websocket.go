package handlers

import (
	"net/http"

	"tandem-backend/internal/middleware"
	"tandem-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler attaches authenticated clients to the session hub so they
// receive claims-refresh signals without polling.
type WebSocketHandler struct {
	hub      *services.SessionHub
	verifier *middleware.Verifier
}

// NewWebSocketHandler creates a new websocket handler.
func NewWebSocketHandler(hub *services.SessionHub, verifier *middleware.Verifier) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, verifier: verifier}
}

// HandleWebSocket handles GET /ws. The bearer token arrives as a query
// parameter because browsers cannot set websocket headers.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, _, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID)

	// Hold the connection open; the hub writes, clients only listen.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
