package presence

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/repository/store/inmemory"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock, store.Store) {
	clock := &fakeClock{t: time.UnixMilli(1700000000000)}
	s := inmemory.NewRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewTracker(s, logger, WithClock(clock.Now)), clock, s
}

func TestActiveViewersWindowBoundary(t *testing.T) {
	tracker, clock, _ := newTestTracker()
	ctx := context.Background()

	fresh := domain.User{Id: "fresh", Name: "Fresh"}
	stale := domain.User{Id: "stale", Name: "Stale"}
	edge := domain.User{Id: "edge", Name: "Edge"}

	require.NoError(t, tracker.Heartbeat(ctx, "r1", stale))
	clock.Advance(time.Second)
	require.NoError(t, tracker.Heartbeat(ctx, "r1", edge))
	clock.Advance(time.Second)
	require.NoError(t, tracker.Heartbeat(ctx, "r1", fresh))

	// stale: 11s, edge: 10s, fresh: 9s.
	clock.Advance(9 * time.Second)

	users, err := tracker.ActiveViewers(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []domain.User{fresh}, users)
}

func TestHeartbeatRefreshes(t *testing.T) {
	tracker, clock, _ := newTestTracker()
	ctx := context.Background()
	u := domain.User{Id: "u1", Name: "One", Role: domain.RoleAdmin}

	require.NoError(t, tracker.Heartbeat(ctx, "r1", u))
	clock.Advance(8 * time.Second)
	require.NoError(t, tracker.Heartbeat(ctx, "r1", u))
	clock.Advance(8 * time.Second)

	users, err := tracker.ActiveViewers(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].Id)
	assert.Empty(t, users[0].Role, "role is not part of the presence descriptor")
}

func TestActiveViewersEmptyRoom(t *testing.T) {
	tracker, _, _ := newTestTracker()

	users, err := tracker.ActiveViewers(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestHeartbeatRequiresUserId(t *testing.T) {
	tracker, _, _ := newTestTracker()

	err := tracker.Heartbeat(context.Background(), "r1", domain.User{Name: "ghost"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMalformedEntryIsSkipped(t *testing.T) {
	tracker, _, s := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tracker.Heartbeat(ctx, "r1", domain.User{Id: "ok", Name: "Ok"}))
	require.NoError(t, s.Merge(ctx, store.PresenceKey("r1"), store.Document{"bad": []byte(`"x"`)}))

	users, err := tracker.ActiveViewers(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSweep(t *testing.T) {
	tracker, clock, s := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tracker.Heartbeat(ctx, "r1", domain.User{Id: "old"}))
	clock.Advance(time.Minute)
	require.NoError(t, tracker.Heartbeat(ctx, "r1", domain.User{Id: "new"}))

	removed, err := tracker.Sweep(ctx, "r1", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	doc, err := s.Get(ctx, store.PresenceKey("r1"))
	require.NoError(t, err)
	assert.Contains(t, doc, "new")
	assert.NotContains(t, doc, "old")
}
