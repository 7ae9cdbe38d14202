package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personagrid/pkg/auth"
)

func TestWSHubBroadcastReachesSubscriber(t *testing.T) {
	hub := NewWSHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleEvents))
	defer srv.Close()

	token, err := auth.GenerateOrganization("org-1", "ops@acme.test", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Subscription registration races the dial returning; give it a moment.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subs["org-1"]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("org-1", WSMessage{Type: "task_created", Payload: "hello"})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "task_created", msg.Type)
	assert.Equal(t, "org-1", msg.Channel)
}

func TestWSHubAdminLandsOnAdminChannel(t *testing.T) {
	hub := NewWSHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleEvents))
	defer srv.Close()

	token, err := auth.GenerateAdmin("admin-1", "root@grid.test", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subs[AdminChannel]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSHubBroadcastDuringChurn(t *testing.T) {
	hub := NewWSHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleEvents))
	defer srv.Close()

	token, err := auth.GenerateOrganization("org-1", "ops@acme.test", time.Hour)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.Broadcast("org-1", WSMessage{Type: "task_created", Payload: i})
		}
	}()

	// Subscribers connect and drop while the broadcaster runs; disconnects
	// mutate the subscriber map concurrently with the fan-out.
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}
	<-done
}

func TestWSHubRejectsBadToken(t *testing.T) {
	hub := NewWSHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleEvents))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?token=garbage")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
