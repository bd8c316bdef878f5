package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"demovoice-server/pkg/pipeline"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*ProgressHub, *httptest.Server) {
	t.Helper()

	hub := NewProgressHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readProgress(t *testing.T, conn *websocket.Conn) ProgressMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg ProgressMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestProgressHubBroadcast(t *testing.T) {
	hub, ts := startHub(t)

	conn := dial(t, ts, "")

	// Give the hub time to register the client
	waitForClients(t, hub, 1)

	hub.BroadcastProgress("session-1", pipeline.StageGenerating, "generating narration script")

	msg := readProgress(t, conn)
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, pipeline.StageGenerating, msg.Stage)
	assert.Equal(t, "generating narration script", msg.Message)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestProgressHubSessionFilter(t *testing.T) {
	hub, ts := startHub(t)

	subscribed := dial(t, ts, "?session_id=session-a")
	waitForClients(t, hub, 1)

	// Update for a different session must not reach the subscriber
	hub.BroadcastProgress("session-b", pipeline.StageComplete, "done")
	hub.BroadcastProgress("session-a", pipeline.StageComplete, "done")

	msg := readProgress(t, subscribed)
	assert.Equal(t, "session-a", msg.SessionID)
}

func TestProgressHubClientCount(t *testing.T) {
	hub, ts := startHub(t)

	assert.Equal(t, 0, hub.ClientCount())

	dial(t, ts, "")
	waitForClients(t, hub, 1)

	dial(t, ts, "")
	waitForClients(t, hub, 2)
}

func waitForClients(t *testing.T, hub *ProgressHub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d connected clients, have %d", want, hub.ClientCount())
}

func TestProgressHubConcurrentBroadcastAndCount(t *testing.T) {
	hub, ts := startHub(t)

	dial(t, ts, "")
	waitForClients(t, hub, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.BroadcastProgress("session-1", pipeline.StageGenerating, "update")
		}
	}()

	for i := 0; i < 200; i++ {
		hub.ClientCount()
	}
	<-done

	waitForClients(t, hub, 1)
}
