package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer is a WebSocket endpoint that drops its first accepted
// connection immediately and keeps every later one open, exposing the
// accepted connections and a dial count.
type feedServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	dials int

	accepted chan *websocket.Conn
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{accepted: make(chan *websocket.Conn, 4)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.dials++
		n := fs.dials
		fs.mu.Unlock()

		if n == 1 {
			conn.Close()
			return
		}
		fs.accepted <- conn
		// Hold the connection open until the peer goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *feedServer) dialCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.dials
}

// A dropped connection must be redialed exactly once, and the replacement
// must stay up: the old read loop's teardown may not touch it.
func TestReconnectKeepsReplacementAlive(t *testing.T) {
	fs := newFeedServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := NewQueue(8, logger)

	client := NewWSClient(fs.wsURL(), queue, logger)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	var server *websocket.Conn
	select {
	case server = <-fs.accepted:
	case <-time.After(5 * reconnectDelay):
		t.Fatal("client never redialed after the dropped connection")
	}
	defer server.Close()

	// Long enough for a wrongly-killed replacement to trigger a third dial.
	time.Sleep(reconnectDelay + reconnectDelay/2)
	assert.Equal(t, 2, fs.dialCount())

	// Candidates must still flow over the replacement connection.
	payload := `{"event":"launch","mint":"mintA","symbol":"AAA","liquidity":42,"timestamp":1755993600000}`
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(payload)))

	select {
	case cand := <-queue.C():
		assert.Equal(t, "mintA", cand.Mint)
		assert.Equal(t, "AAA", cand.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("candidate from the replacement connection never arrived")
	}
}

func TestCloseStopsReconnecting(t *testing.T) {
	fs := newFeedServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := NewQueue(8, logger)

	client := NewWSClient(fs.wsURL(), queue, logger)
	require.NoError(t, client.Connect(context.Background()))

	var server *websocket.Conn
	select {
	case server = <-fs.accepted:
	case <-time.After(5 * reconnectDelay):
		t.Fatal("client never redialed after the dropped connection")
	}

	require.NoError(t, client.Close())
	server.Close()

	time.Sleep(reconnectDelay + reconnectDelay/2)
	assert.Equal(t, 2, fs.dialCount())
}
