package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string, streams []string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, streams, Allowed(), w, r)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, stream string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(stream) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastToUserReachesOnlyThatUser(t *testing.T) {
	hub := NewHub()
	alice := dialHub(t, hub, "alice", []string{StreamNotifications})
	bob := dialHub(t, hub, "bob", []string{StreamNotifications})
	waitForSubscribers(t, hub, StreamNotifications, 2)

	hub.BroadcastToUser(StreamNotifications, "alice", Message{Event: "reminder", Data: map[string]string{"type": "HydrationReminder"}})

	msg := readMessage(t, alice)
	require.Equal(t, StreamNotifications, msg.Stream)
	require.Equal(t, "reminder", msg.Event)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	require.Error(t, err)
}

func TestBroadcastStreamReachesEverySubscriber(t *testing.T) {
	hub := NewHub()
	alice := dialHub(t, hub, "alice", DefaultStreams)
	bob := dialHub(t, hub, "bob", []string{StreamMotivation})
	waitForSubscribers(t, hub, StreamMotivation, 2)

	hub.BroadcastStream(StreamMotivation, Message{Event: "daily", Data: "Keep going"})

	require.Equal(t, "daily", readMessage(t, alice).Event)
	require.Equal(t, "daily", readMessage(t, bob).Event)
}

func TestDisallowedStreamsAreIgnored(t *testing.T) {
	hub := NewHub()
	dialHub(t, hub, "alice", []string{"admin.audit", StreamNotifications})
	waitForSubscribers(t, hub, StreamNotifications, 1)
	require.Zero(t, hub.Subscribers("admin.audit"))
}

func TestControlFrames(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "alice", nil)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "subscribe", Streams: []string{" Motivation "}}))
	waitForSubscribers(t, hub, StreamMotivation, 1)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "ping"}))
	require.Equal(t, "pong", readMessage(t, conn).Event)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "unsubscribe", Streams: []string{StreamMotivation}}))
	waitForSubscribers(t, hub, StreamMotivation, 0)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "alice", DefaultStreams)
	waitForSubscribers(t, hub, StreamNotifications, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, StreamNotifications, 0)
}

func TestNilHubBroadcastIsNoop(t *testing.T) {
	var hub *Hub
	hub.BroadcastToUser(StreamNotifications, "alice", Message{})
	hub.BroadcastStream(StreamMotivation, Message{})
}

func TestSameOriginOrLoopback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.welltrack.app/api/realtime", nil)
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://api.welltrack.app")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://evil.example.com")
	require.False(t, sameOriginOrLoopback(req))
}
