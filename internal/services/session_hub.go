package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SessionMessage is a message pushed to a connected client session.
type SessionMessage struct {
	Type        string    `json:"type"`
	RefreshTime time.Time `json:"refreshTime,omitempty"`
}

// SessionHub tracks the live websocket session of each user. Claims
// propagation uses it to push the refresh signal to already-connected
// clients so they refetch their claims without a new login.
type SessionHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewSessionHub creates an empty session hub.
func NewSessionHub() *SessionHub {
	return &SessionHub{connections: make(map[string]*websocket.Conn)}
}

// Register attaches a connection for a user, replacing any previous one.
func (h *SessionHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}
	h.connections[userID] = conn
	log.Info().Str("user_id", userID).Msg("Session registered")
}

// Unregister closes and removes the connection of a user.
func (h *SessionHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[userID]; ok {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("Session unregistered")
	}
}

// IsOnline reports whether the user has a live session.
func (h *SessionHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// NotifyClaimsRefresh pushes a claims-refresh signal to the user's session.
func (h *SessionHub) NotifyClaimsRefresh(userID string, refreshTime time.Time) error {
	return h.send(userID, SessionMessage{Type: "claimsRefresh", RefreshTime: refreshTime})
}

func (h *SessionHub) send(userID string, message SessionMessage) error {
	h.mu.RLock()
	conn, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}
	if err := conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to send session message: %w", err)
	}
	return nil
}
