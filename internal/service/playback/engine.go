// Package playback is the Playback Sync Engine. It keeps an approximately
// consistent view of a room's player across clients that share nothing but
// a store.Store: writers publish with a timestamp, readers poll and
// reconcile their local player against the newest state.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/store"
)

const (
	DefaultHistoryLimit = 200
	orderField          = "lastWriterTimestamp"
)

// Fields a regular publish may touch. The video fields are only written by
// PublishVideoChange so a late publish from a client still on the previous
// video cannot switch the room back.
var stateFields = []string{"currentTime", "isPlaying", "volume", "writerId"}

type Engine struct {
	store        store.Store
	logger       *slog.Logger
	now          func() time.Time
	historyLimit int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.historyLimit = limit
		}
	}
}

func NewEngine(s store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		logger:       logger,
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// PublishState writes the playback fields of state for the room, stamping
// LastWriterTimestamp with the current time when the caller left it zero.
// The write is dropped when a newer state is already stored; ties go to the
// later arrival. The returned state carries the stamped timestamp and the
// store revision.
func (e *Engine) PublishState(ctx context.Context, roomId string, state domain.PlaybackState) (domain.PlaybackState, bool, error) {
	if state.LastWriterTimestamp == 0 {
		state.LastWriterTimestamp = e.now().UnixMilli()
	}

	doc, err := store.Encode(state)
	if err != nil {
		return domain.PlaybackState{}, false, err
	}

	revision, accepted, err := e.store.MergeIfNewer(ctx, store.PlaybackKey(roomId), orderField, state.LastWriterTimestamp, doc.Pick(stateFields...))
	if err != nil {
		metrics.PlaybackPublishes.WithLabelValues("error").Inc()
		return domain.PlaybackState{}, false, fmt.Errorf("failed to publish state: %w", err)
	}

	if !accepted {
		metrics.PlaybackPublishes.WithLabelValues("stale").Inc()
		e.logger.DebugContext(ctx, "stale publish dropped", "room_id", roomId, "last_writer_timestamp", state.LastWriterTimestamp)
		return state, false, nil
	}
	metrics.PlaybackPublishes.WithLabelValues("accepted").Inc()
	state.Revision = revision

	return state, true, nil
}

// PublishVideoChange switches the room to videoId and rewinds it: every
// client reconciling against the marker loads the video and starts at 0.
func (e *Engine) PublishVideoChange(ctx context.Context, roomId, videoId, writerId string) (domain.PlaybackState, error) {
	now := e.now().UnixMilli()
	state := domain.PlaybackState{
		CurrentTime:         0,
		IsPlaying:           false,
		ActiveVideoId:       videoId,
		VideoChangedAt:      now,
		LastWriterTimestamp: now,
		WriterId:            writerId,
	}

	doc, err := store.Encode(state)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	revision, accepted, err := e.store.MergeIfNewer(ctx, store.PlaybackKey(roomId), orderField, now,
		doc.Pick("currentTime", "isPlaying", "activeVideoId", "videoChangedAt", "writerId"))
	if err != nil {
		metrics.PlaybackPublishes.WithLabelValues("error").Inc()
		return domain.PlaybackState{}, fmt.Errorf("failed to publish video change: %w", err)
	}

	if !accepted {
		metrics.PlaybackPublishes.WithLabelValues("stale").Inc()
		return domain.PlaybackState{}, fmt.Errorf("video change to %s overtaken by a newer write: %w", videoId, domain.ErrConflict)
	}
	metrics.PlaybackPublishes.WithLabelValues("accepted").Inc()
	state.Revision = revision

	return state, nil
}

// PollState returns the latest published state, or nil when the room has
// never been published to.
func (e *Engine) PollState(ctx context.Context, roomId string) (*domain.PlaybackState, error) {
	doc, err := e.store.Get(ctx, store.PlaybackKey(roomId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.PlaybackPolls.WithLabelValues("empty").Inc()
			return nil, nil
		}

		metrics.PlaybackPolls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to poll state: %w", err)
	}

	var state domain.PlaybackState
	if err := store.Decode(doc, &state); err != nil {
		metrics.PlaybackPolls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode state of room %s: %w", roomId, err)
	}

	if _, ok := doc["volume"]; !ok {
		state.Volume = domain.DefaultVolume
	}
	metrics.PlaybackPolls.WithLabelValues("ok").Inc()

	return &state, nil
}

// Estimate is the position state implies at now.
func Estimate(state domain.PlaybackState, now time.Time) float64 {
	return state.EstimatedTime(now)
}
