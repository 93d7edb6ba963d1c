package room

import (
	"context"
	"fmt"
	"net/url"
	"path"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

type AddCustomVideoParams struct {
	RoomId string
	Actor  domain.User
	Name   string
	Src    string
	// Kind is detected from Src when empty.
	Kind domain.VideoKind
}

// AddCustomVideo adds a direct URL or YouTube video to the room. YouTube
// names are looked up when not given, falling back to the video id.
func (s service) AddCustomVideo(ctx context.Context, params *AddCustomVideoParams) (domain.Video, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Src, validation.Required),
		validation.Field(&params.Name, VideoNameRule...),
		validation.Field(&params.Kind, VideoKindRule...),
	); err != nil {
		return domain.Video{}, invalid(err)
	}

	video, err := s.resolveVideo(ctx, params)
	if err != nil {
		return domain.Video{}, err
	}

	video, err = s.roomRepo.AddCustomVideo(ctx, &roomrepo.AddCustomVideoParams{
		RoomId: params.RoomId,
		Actor:  params.Actor,
		Video:  video,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to add custom video", "error", err)
		return domain.Video{}, err
	}

	return video, nil
}

func (s service) resolveVideo(ctx context.Context, params *AddCustomVideoParams) (domain.Video, error) {
	ytId, isYoutube := ytvideodata.ParseVideoId(params.Src)

	kind := params.Kind
	if kind == "" {
		kind = domain.VideoKindDirect
		if isYoutube {
			kind = domain.VideoKindYoutube
		}
	}

	switch kind {
	case domain.VideoKindYoutube:
		if !isYoutube {
			return domain.Video{}, fmt.Errorf("%w: %q is not a YouTube video", domain.ErrInvalidInput, params.Src)
		}

		name := params.Name
		if name == "" {
			name = ytId
			data, err := s.videoData.Get(ctx, ytId)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to get youtube video data", "video_id", ytId, "error", err)
			} else if data.Title != "" {
				name = data.Title
			}
		}

		return domain.Video{Name: name, Src: ytId, Kind: domain.VideoKindYoutube}, nil
	default:
		if err := validation.Validate(params.Src, is.URL); err != nil {
			return domain.Video{}, invalid(err)
		}

		name := params.Name
		if name == "" {
			name = params.Src
			if u, err := url.Parse(params.Src); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
				name = path.Base(u.Path)
			}
		}

		return domain.Video{Name: name, Src: params.Src, Kind: domain.VideoKindDirect}, nil
	}
}
