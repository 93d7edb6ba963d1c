// Package room holds the room use cases. It orchestrates the Room
// Repository, the Playback Sync Engine and the Presence Tracker and is the
// only place where membership gates engine access.
package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

type iRoomRepo interface {
	Create(ctx context.Context, params *roomrepo.CreateParams) (domain.Room, error)
	GetById(ctx context.Context, roomId string) (domain.Room, error)
	GetByInviteCode(ctx context.Context, code string) (domain.Room, error)
	List(ctx context.Context, viewer domain.User) ([]domain.Room, error)
	AddUser(ctx context.Context, params *roomrepo.AddUserParams) (domain.Room, error)
	SetPrivacy(ctx context.Context, params *roomrepo.SetPrivacyParams) (domain.Room, error)
	ChangeVideo(ctx context.Context, params *roomrepo.ChangeVideoParams) (domain.Room, error)
	AddCustomVideo(ctx context.Context, params *roomrepo.AddCustomVideoParams) (domain.Video, error)
	Delete(ctx context.Context, params *roomrepo.DeleteParams) error
}

type iSyncEngine interface {
	PublishState(ctx context.Context, roomId string, state domain.PlaybackState) (domain.PlaybackState, bool, error)
	PublishVideoChange(ctx context.Context, roomId, videoId, writerId string) (domain.PlaybackState, error)
	PollState(ctx context.Context, roomId string) (*domain.PlaybackState, error)
	PostMessage(ctx context.Context, roomId string, user domain.User, text string) (domain.ChatMessage, error)
	PollMessages(ctx context.Context, roomId string) ([]domain.ChatMessage, error)
}

type iPresenceTracker interface {
	Heartbeat(ctx context.Context, roomId string, user domain.User) error
	ActiveViewers(ctx context.Context, roomId string) ([]domain.User, error)
	Sweep(ctx context.Context, roomId string, olderThan time.Duration) (int, error)
}

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type service struct {
	roomRepo  iRoomRepo
	engine    iSyncEngine
	tracker   iPresenceTracker
	videoData iVideoData
	logger    *slog.Logger
}

func NewService(roomRepo iRoomRepo, engine iSyncEngine, tracker iPresenceTracker, videoData iVideoData, logger *slog.Logger) *service {
	return &service{
		roomRepo:  roomRepo,
		engine:    engine,
		tracker:   tracker,
		videoData: videoData,
		logger:    logger,
	}
}
