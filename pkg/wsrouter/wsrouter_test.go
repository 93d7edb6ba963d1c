package wsrouter

import (
	"context"
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

type pingInput struct {
	Text string `json:"text"`
}

func TestServeConn(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
		types    []string
		errs     []error
	)
	done := make(chan struct{}, 4)

	router := New(func(_ context.Context, _ *websocket.Conn, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		done <- struct{}{}
	})
	router.Use(func(next HandlerFunc[any]) HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			mu.Lock()
			types = append(types, GetMessageTypeFromCtx(ctx))
			mu.Unlock()
			return next(ctx, conn, payload)
		}
	})
	AddHandler(router, "PING", func(_ context.Context, _ *websocket.Conn, input pingInput) error {
		mu.Lock()
		received = append(received, input.Text)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		router.ServeConn(context.Background(), conn)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "PING", "payload": map[string]string{"text": "hi"}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "NOPE"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for message handling")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"hi"}, received)
	assert.Equal(t, []string{"PING"}, types)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrUnknownMessageType)
}
