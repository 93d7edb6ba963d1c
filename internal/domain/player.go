package domain

import "time"

const DefaultVolume = 1.0

// PlaybackState is the shared, last-writer-wins player document of a room.
// CurrentTime is only exact at LastWriterTimestamp; use EstimatedTime.
type PlaybackState struct {
	CurrentTime         float64 `json:"currentTime"`
	IsPlaying           bool    `json:"isPlaying"`
	Volume              float64 `json:"volume"`
	ActiveVideoId       string  `json:"activeVideoId,omitempty"`
	VideoChangedAt      int64   `json:"videoChangedAt,omitempty"`
	LastWriterTimestamp int64   `json:"lastWriterTimestamp"`
	WriterId            string  `json:"writerId,omitempty"`
	Revision            int64   `json:"revision"`
}

func NewPlaybackState(videoId string) PlaybackState {
	return PlaybackState{
		CurrentTime:   0,
		IsPlaying:     false,
		Volume:        DefaultVolume,
		ActiveVideoId: videoId,
	}
}

func (s PlaybackState) LastWrite() time.Time {
	return time.UnixMilli(s.LastWriterTimestamp)
}

// EstimatedTime extrapolates CurrentTime to now. Negative elapsed time,
// caused by a writer clock ahead of ours, counts as zero.
func (s PlaybackState) EstimatedTime(now time.Time) float64 {
	if !s.IsPlaying || s.LastWriterTimestamp == 0 {
		return s.CurrentTime
	}

	elapsed := now.Sub(s.LastWrite()).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return s.CurrentTime + elapsed
}
