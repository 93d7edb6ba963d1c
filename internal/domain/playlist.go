package domain

import "fmt"

var ErrVideoNotFound = fmt.Errorf("video %w", ErrNotFound)

type VideoKind string

const (
	VideoKindDirect  VideoKind = "direct"
	VideoKindYoutube VideoKind = "youtube"
)

// DefaultVideoId is selected for rooms created without an explicit video.
const DefaultVideoId = "sample1"

type Video struct {
	Id   string    `json:"id"`
	Name string    `json:"name"`
	Src  string    `json:"src"`
	Kind VideoKind `json:"kind"`
}

var SampleVideos = []Video{
	{
		Id:   "sample1",
		Name: "Sample Video 1",
		Src:  "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
		Kind: VideoKindDirect,
	},
	{
		Id:   "sample2",
		Name: "Sample Video 2",
		Src:  "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
		Kind: VideoKindDirect,
	},
	{
		Id:   "sample3",
		Name: "Sample Video 3",
		Src:  "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/TearsOfSteel.mp4",
		Kind: VideoKindDirect,
	},
}

func (k VideoKind) Valid() bool {
	return k == VideoKindDirect || k == VideoKindYoutube
}

// ResolveVideo looks id up among the built-in samples first, then among the
// room's custom videos.
func ResolveVideo(id string, custom []Video) (Video, error) {
	for _, v := range SampleVideos {
		if v.Id == id {
			return v, nil
		}
	}
	for _, v := range custom {
		if v.Id == id {
			return v, nil
		}
	}

	return Video{}, ErrVideoNotFound
}
