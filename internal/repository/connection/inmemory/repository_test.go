package inmemory

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

// dialPair returns the server side of a fresh websocket connection and the
// client side reading from it.
func dialPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverConns:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
		return nil, nil
	}
}

func TestRegistry(t *testing.T) {
	r := NewRepo(slog.New(slog.NewTextHandler(io.Discard, nil)))

	a, aClient := dialPair(t)
	b, bClient := dialPair(t)
	other, _ := dialPair(t)

	require.NoError(t, r.Add(a, "r1", "alice"))
	require.NoError(t, r.Add(b, "r1", "bob"))
	require.NoError(t, r.Add(other, "r2", "carol"))
	assert.ErrorIs(t, r.Add(a, "r1", "alice"), connection.ErrAlreadyExists)

	assert.Equal(t, 3, r.Count())
	assert.ElementsMatch(t, []*websocket.Conn{a, b}, r.ListByRoom("r1"))

	userId, err := r.GetUserId(b)
	require.NoError(t, err)
	assert.Equal(t, "bob", userId)

	require.NoError(t, r.Broadcast("r1", func(conn *websocket.Conn) (any, bool) {
		return map[string]string{"type": "PING"}, true
	}))
	for _, client := range []*websocket.Conn{aClient, bClient} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got map[string]string
		require.NoError(t, client.ReadJSON(&got))
		assert.Equal(t, "PING", got["type"])
	}

	// frames are built per connection and may be skipped
	require.NoError(t, r.Broadcast("r1", func(conn *websocket.Conn) (any, bool) {
		if conn == a {
			return nil, false
		}
		return map[string]string{"type": "ONLY_BOB"}, true
	}))
	require.NoError(t, bClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]string
	require.NoError(t, bClient.ReadJSON(&got))
	assert.Equal(t, "ONLY_BOB", got["type"])

	require.NoError(t, aClient.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	assert.Error(t, aClient.ReadJSON(&got), "alice was skipped")

	require.NoError(t, r.Remove(a))
	assert.ErrorIs(t, r.Remove(a), connection.ErrNotFound)
	assert.ErrorIs(t, r.Send(a, "late"), connection.ErrNotFound)
	assert.Equal(t, []*websocket.Conn{b}, r.ListByRoom("r1"))

	require.NoError(t, r.Remove(b))
	assert.Empty(t, r.ListByRoom("r1"))
	assert.Equal(t, 1, r.Count())
}
