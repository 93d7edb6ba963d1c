package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sharetube/watchparty/internal/domain"
)

func TestReconcile(t *testing.T) {
	now := time.UnixMilli(1700000010000)
	remotePlaying := &domain.PlaybackState{
		CurrentTime:         50,
		IsPlaying:           true,
		Volume:              1,
		ActiveVideoId:       "sample1",
		LastWriterTimestamp: 1700000000000,
	}

	tests := []struct {
		name   string
		local  LocalState
		remote *domain.PlaybackState
		want   []Action
	}{
		{
			name:   "nothing published",
			local:  LocalState{CurrentTime: 3, VideoId: "sample1", Volume: 1},
			remote: nil,
			want:   nil,
		},
		{
			name:   "in sync within threshold",
			local:  LocalState{CurrentTime: 59.5, IsPlaying: true, VideoId: "sample1", Volume: 1},
			remote: remotePlaying,
			want:   nil,
		},
		{
			name:   "drift beyond threshold seeks to estimate",
			local:  LocalState{CurrentTime: 55, IsPlaying: true, VideoId: "sample1", Volume: 1},
			remote: remotePlaying,
			want:   []Action{{Kind: ActionSeek, Time: 60}},
		},
		{
			name:   "paused remote does not extrapolate",
			local:  LocalState{CurrentTime: 50.5, IsPlaying: true, VideoId: "sample1", Volume: 1},
			remote: &domain.PlaybackState{CurrentTime: 50, Volume: 1, ActiveVideoId: "sample1", LastWriterTimestamp: 1700000000000},
			want:   []Action{{Kind: ActionSetPlaying, Playing: false}},
		},
		{
			name:   "video differs loads first then seeks from zero",
			local:  LocalState{CurrentTime: 120, IsPlaying: true, VideoId: "sample2", Volume: 1},
			remote: remotePlaying,
			want: []Action{
				{Kind: ActionLoadVideo, VideoId: "sample1"},
				{Kind: ActionSeek, Time: 60},
				{Kind: ActionSetPlaying, Playing: true},
			},
		},
		{
			name:   "volume change",
			local:  LocalState{CurrentTime: 60, IsPlaying: true, VideoId: "sample1", Volume: 0.4},
			remote: remotePlaying,
			want:   []Action{{Kind: ActionSetVolume, Volume: 1}},
		},
		{
			name:   "volume jitter ignored",
			local:  LocalState{CurrentTime: 60, IsPlaying: true, VideoId: "sample1", Volume: 0.995},
			remote: remotePlaying,
			want:   nil,
		},
		{
			name:   "writer clock ahead counts as no elapsed time",
			local:  LocalState{CurrentTime: 50, IsPlaying: true, VideoId: "sample1", Volume: 1},
			remote: &domain.PlaybackState{CurrentTime: 50, IsPlaying: true, Volume: 1, ActiveVideoId: "sample1", LastWriterTimestamp: 1700000020000},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.local, tt.remote, now))
		})
	}
}

func TestEstimate(t *testing.T) {
	state := domain.PlaybackState{CurrentTime: 10, IsPlaying: true, LastWriterTimestamp: 1000}

	assert.InDelta(t, 12.5, Estimate(state, time.UnixMilli(3500)), 1e-9)
}
