package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialSession upgrades a test connection pair and registers the server side
// with the hub.
func dialSession(t *testing.T, hub *SessionHub, userID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(userID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSessionHubNotifyClaimsRefresh(t *testing.T) {
	hub := NewSessionHub()
	client := dialSession(t, hub, "u1")

	require.Eventually(t, func() bool { return hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

	refreshTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, hub.NotifyClaimsRefresh("u1", refreshTime))

	client.SetReadDeadline(time.Now().Add(time.Second))
	var message SessionMessage
	require.NoError(t, client.ReadJSON(&message))
	assert.Equal(t, "claimsRefresh", message.Type)
	assert.True(t, refreshTime.Equal(message.RefreshTime))
}

func TestSessionHubNotifyOfflineUser(t *testing.T) {
	hub := NewSessionHub()
	assert.Error(t, hub.NotifyClaimsRefresh("ghost", time.Now()))
}

func TestSessionHubUnregister(t *testing.T) {
	hub := NewSessionHub()
	dialSession(t, hub, "u1")
	require.Eventually(t, func() bool { return hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

	hub.Unregister("u1")
	assert.False(t, hub.IsOnline("u1"))
	assert.Error(t, hub.NotifyClaimsRefresh("u1", time.Now()))
}
