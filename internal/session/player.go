package session

import (
	"sync"
	"time"
)

// MediaElement is the local player a Controller drives. Implementations
// must be safe for concurrent use.
type MediaElement interface {
	VideoId() string
	CurrentTime() float64
	IsPlaying() bool
	Volume() float64
	LoadVideo(videoId string)
	Seek(seconds float64)
	SetPlaying(playing bool)
	SetVolume(volume float64)
}

// VirtualPlayer is a MediaElement without media: its position advances with
// the clock while playing.
type VirtualPlayer struct {
	mu       sync.Mutex
	now      func() time.Time
	videoId  string
	position float64
	since    time.Time
	playing  bool
	volume   float64
}

func NewVirtualPlayer(now func() time.Time) *VirtualPlayer {
	if now == nil {
		now = time.Now
	}

	return &VirtualPlayer{
		now:    now,
		since:  now(),
		volume: 1,
	}
}

func (p *VirtualPlayer) currentTime() float64 {
	if !p.playing {
		return p.position
	}

	return p.position + p.now().Sub(p.since).Seconds()
}

func (p *VirtualPlayer) VideoId() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoId
}

func (p *VirtualPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentTime()
}

func (p *VirtualPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.playing
}

func (p *VirtualPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.volume
}

func (p *VirtualPlayer) LoadVideo(videoId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.videoId = videoId
	p.position = 0
	p.playing = false
	p.since = p.now()
}

func (p *VirtualPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = max(seconds, 0)
	p.since = p.now()
}

func (p *VirtualPlayer) SetPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = p.currentTime()
	p.since = p.now()
	p.playing = playing
}

func (p *VirtualPlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = min(max(volume, 0), 1)
}
