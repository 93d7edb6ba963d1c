package playback

import (
	"math"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
)

const (
	// DriftThreshold is the largest tolerated gap, in seconds, between the
	// local position and the estimated remote one.
	DriftThreshold  = 1.0
	VolumeThreshold = 0.01
)

type ActionKind string

const (
	ActionLoadVideo  ActionKind = "loadVideo"
	ActionSeek       ActionKind = "seek"
	ActionSetPlaying ActionKind = "setPlaying"
	ActionSetVolume  ActionKind = "setVolume"
)

type Action struct {
	Kind    ActionKind
	VideoId string
	Time    float64
	Playing bool
	Volume  float64
}

// LocalState is what a client's media element reports right now.
type LocalState struct {
	VideoId     string
	CurrentTime float64
	IsPlaying   bool
	Volume      float64
}

// Reconcile computes the actions that bring local in line with remote.
// Remote wins wholesale; actions are ordered load, seek, play state, volume.
func Reconcile(local LocalState, remote *domain.PlaybackState, now time.Time) []Action {
	if remote == nil {
		return nil
	}

	var actions []Action
	if remote.ActiveVideoId != "" && remote.ActiveVideoId != local.VideoId {
		actions = append(actions, Action{Kind: ActionLoadVideo, VideoId: remote.ActiveVideoId})
		local.VideoId = remote.ActiveVideoId
		local.CurrentTime = 0
		local.IsPlaying = false
	}

	estimated := remote.EstimatedTime(now)
	if Drift(local, remote, now) > DriftThreshold {
		actions = append(actions, Action{Kind: ActionSeek, Time: estimated})
	}

	if remote.IsPlaying != local.IsPlaying {
		actions = append(actions, Action{Kind: ActionSetPlaying, Playing: remote.IsPlaying})
	}

	if math.Abs(remote.Volume-local.Volume) > VolumeThreshold {
		actions = append(actions, Action{Kind: ActionSetVolume, Volume: remote.Volume})
	}

	return actions
}

// Drift is the absolute gap between the local position and the estimated
// remote one.
func Drift(local LocalState, remote *domain.PlaybackState, now time.Time) float64 {
	return math.Abs(remote.EstimatedTime(now) - local.CurrentTime)
}
