package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
)

var alice = domain.User{Id: "u-alice", Name: "Alice"}

func TestPostMessageAppends(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	before, err := e.PollMessages(ctx, "r1")
	require.NoError(t, err)

	posted, err := e.PostMessage(ctx, "r1", alice, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", posted.Text)
	assert.Equal(t, "Alice", posted.UserName)
	assert.NotEmpty(t, posted.Id)

	after, err := e.PollMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, posted, after[len(after)-1])
}

func TestPostMessageRejectsEmpty(t *testing.T) {
	e, _, _ := newTestEngine()

	_, err := e.PostMessage(context.Background(), "r1", alice, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.PostMessage(context.Background(), "r1", alice, strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMessagesNeverReordered(t *testing.T) {
	e, clock, _ := newTestEngine()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		m, err := e.PostMessage(ctx, "r1", alice, fmt.Sprint(i))
		require.NoError(t, err)
		ids = append(ids, m.Id)
		if i%2 == 0 {
			clock.Advance(time.Millisecond)
		}

		messages, err := e.PollMessages(ctx, "r1")
		require.NoError(t, err)
		got := make([]string, 0, len(messages))
		for _, m := range messages {
			got = append(got, m.Id)
		}
		assert.Equal(t, ids, got)
	}
}

func TestConcurrentPostsAreNotLost(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.PostMessage(ctx, "r1", alice, fmt.Sprint(i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	messages, err := e.PollMessages(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, messages, 25)
}

func TestHistoryLimit(t *testing.T) {
	e, _, _ := newTestEngine(WithHistoryLimit(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.PostMessage(ctx, "r1", alice, fmt.Sprint(i))
		require.NoError(t, err)
	}

	messages, err := e.PollMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "2", messages[0].Text)
}

func TestPollMessagesSkipsMalformed(t *testing.T) {
	e, _, s := newTestEngine()
	ctx := context.Background()

	_, err := s.Append(ctx, store.MessagesKey("r1"), []byte(`"junk"`), 0)
	require.NoError(t, err)
	_, err = e.PostMessage(ctx, "r1", alice, "ok")
	require.NoError(t, err)

	messages, err := e.PollMessages(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestNewMessagesSince(t *testing.T) {
	messages := []domain.ChatMessage{{Id: "a"}, {Id: "b"}, {Id: "c"}}

	assert.Equal(t, messages, NewMessagesSince(messages, ""))
	assert.Equal(t, []domain.ChatMessage{{Id: "c"}}, NewMessagesSince(messages, "b"))
	assert.Empty(t, NewMessagesSince(messages, "c"))
	assert.Equal(t, messages, NewMessagesSince(messages, "trimmed"))
}
