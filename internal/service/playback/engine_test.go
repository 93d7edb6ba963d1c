package playback

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

func newTestEngine(opts ...Option) (*Engine, *fakeClock, store.Store) {
	clock := &fakeClock{t: time.UnixMilli(1700000000000)}
	s := inmemory.NewRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewEngine(s, logger, append([]Option{WithClock(clock.Now)}, opts...)...), clock, s
}

func TestPollStateFreshRoom(t *testing.T) {
	e, _, _ := newTestEngine()

	state, err := e.PollState(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestPublishStampsTimestamp(t *testing.T) {
	e, clock, _ := newTestEngine()
	ctx := context.Background()

	published, accepted, err := e.PublishState(ctx, "r1", domain.PlaybackState{CurrentTime: 5, IsPlaying: true, Volume: 0.8, WriterId: "a"})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, clock.Now().UnixMilli(), published.LastWriterTimestamp)
	assert.Equal(t, int64(1), published.Revision)

	got, err := e.PollState(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, published, *got)
}

func TestLastWriterWinsOutOfOrder(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	newer := domain.PlaybackState{CurrentTime: 20, IsPlaying: true, Volume: 1, LastWriterTimestamp: 2000, WriterId: "b"}
	older := domain.PlaybackState{CurrentTime: 10, IsPlaying: false, Volume: 1, LastWriterTimestamp: 1000, WriterId: "a"}

	// t2 arrives before t1.
	_, accepted, err := e.PublishState(ctx, "r1", newer)
	require.NoError(t, err)
	assert.True(t, accepted)

	_, accepted, err = e.PublishState(ctx, "r1", older)
	require.NoError(t, err)
	assert.False(t, accepted)

	got, err := e.PollState(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 20.0, got.CurrentTime)
	assert.True(t, got.IsPlaying)
	assert.Equal(t, "b", got.WriterId)
	assert.Equal(t, int64(2000), got.LastWriterTimestamp)
}

func TestDriftConvergence(t *testing.T) {
	e, clock, _ := newTestEngine()
	ctx := context.Background()

	t0 := clock.Now()
	_, _, err := e.PublishState(ctx, "r1", domain.PlaybackState{CurrentTime: 30, IsPlaying: true, Volume: 1})
	require.NoError(t, err)

	// B polls one interval later, still sitting where it joined.
	clock.Advance(2 * time.Second)
	remote, err := e.PollState(ctx, "r1")
	require.NoError(t, err)

	local := LocalState{CurrentTime: 0, IsPlaying: false, Volume: 1}
	actions := Reconcile(local, remote, clock.Now())
	require.Len(t, actions, 2)
	assert.Equal(t, ActionSeek, actions[0].Kind)
	assert.Equal(t, ActionSetPlaying, actions[1].Kind)

	trueElapsed := 30 + clock.Now().Sub(t0).Seconds()
	assert.InDelta(t, trueElapsed, actions[0].Time, DriftThreshold)
}

func TestPublishVideoChange(t *testing.T) {
	e, clock, _ := newTestEngine()
	ctx := context.Background()

	_, _, err := e.PublishState(ctx, "r1", domain.PlaybackState{CurrentTime: 100, IsPlaying: true, Volume: 0.5})
	require.NoError(t, err)

	clock.Advance(time.Second)
	marker, err := e.PublishVideoChange(ctx, "r1", "sample2", "host")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UnixMilli(), marker.VideoChangedAt)

	got, err := e.PollState(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sample2", got.ActiveVideoId)
	assert.Equal(t, 0.0, got.CurrentTime)
	assert.False(t, got.IsPlaying)
	assert.Equal(t, 0.5, got.Volume, "volume survives a video change")

	// A late publish from a client still on the old video keeps the new video.
	_, _, err = e.PublishState(ctx, "r1", domain.PlaybackState{CurrentTime: 3, Volume: 0.5, ActiveVideoId: "sample1"})
	require.NoError(t, err)
	got, err = e.PollState(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "sample2", got.ActiveVideoId)
}

func TestPublishVideoChangeOvertaken(t *testing.T) {
	e, clock, _ := newTestEngine()
	ctx := context.Background()

	future := clock.Now().Add(time.Minute).UnixMilli()
	_, _, err := e.PublishState(ctx, "r1", domain.PlaybackState{Volume: 1, LastWriterTimestamp: future})
	require.NoError(t, err)

	_, err = e.PublishVideoChange(ctx, "r1", "sample3", "host")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPollStateMalformed(t *testing.T) {
	e, _, s := newTestEngine()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.PlaybackKey("r1"), store.Document{"isPlaying": []byte(`"yes"`)}))

	_, err := e.PollState(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestPollStateDefaultsVolume(t *testing.T) {
	e, _, s := newTestEngine()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.PlaybackKey("r1"), store.Document{"currentTime": []byte("4")}))

	got, err := e.PollState(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVolume, got.Volume)
}
