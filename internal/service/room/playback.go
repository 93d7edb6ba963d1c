package room

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/playback"
)

type GetPlaybackParams struct {
	RoomId string
	Viewer domain.User
}

// GetPlayback returns the latest shared state, or nil when nothing was
// published yet.
func (s service) GetPlayback(ctx context.Context, params *GetPlaybackParams) (*domain.PlaybackState, error) {
	if _, err := s.GetRoom(ctx, &GetRoomParams{RoomId: params.RoomId, Viewer: params.Viewer}); err != nil {
		return nil, err
	}

	return s.engine.PollState(ctx, params.RoomId)
}

type PublishPlaybackParams struct {
	RoomId              string
	Writer              domain.User
	CurrentTime         float64
	IsPlaying           bool
	Volume              float64
	LastWriterTimestamp int64
}

type PublishPlaybackResponse struct {
	State    domain.PlaybackState
	Accepted bool
}

func (s service) PublishPlayback(ctx context.Context, params *PublishPlaybackParams) (*PublishPlaybackResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.CurrentTime, validation.Min(0.0)),
		validation.Field(&params.Volume, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&params.LastWriterTimestamp, validation.Min(int64(0))),
	); err != nil {
		return nil, invalid(err)
	}

	if _, err := s.memberRoom(ctx, params.RoomId, params.Writer); err != nil {
		return nil, err
	}

	state, accepted, err := s.engine.PublishState(ctx, params.RoomId, domain.PlaybackState{
		CurrentTime:         params.CurrentTime,
		IsPlaying:           params.IsPlaying,
		Volume:              params.Volume,
		LastWriterTimestamp: params.LastWriterTimestamp,
		WriterId:            params.Writer.Id,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to publish playback", "error", err)
		return nil, err
	}

	return &PublishPlaybackResponse{State: state, Accepted: accepted}, nil
}

type HeartbeatParams struct {
	RoomId string
	User   domain.User
}

func (s service) Heartbeat(ctx context.Context, params *HeartbeatParams) error {
	if _, err := s.memberRoom(ctx, params.RoomId, params.User); err != nil {
		return err
	}

	return s.tracker.Heartbeat(ctx, params.RoomId, params.User)
}

type ActiveViewersParams struct {
	RoomId string
	Viewer domain.User
}

func (s service) ActiveViewers(ctx context.Context, params *ActiveViewersParams) ([]domain.User, error) {
	if _, err := s.GetRoom(ctx, &GetRoomParams{RoomId: params.RoomId, Viewer: params.Viewer}); err != nil {
		return nil, err
	}

	return s.tracker.ActiveViewers(ctx, params.RoomId)
}

type PostMessageParams struct {
	RoomId string
	Sender domain.User
	Text   string
}

func (s service) PostMessage(ctx context.Context, params *PostMessageParams) (domain.ChatMessage, error) {
	if _, err := s.memberRoom(ctx, params.RoomId, params.Sender); err != nil {
		return domain.ChatMessage{}, err
	}

	message, err := s.engine.PostMessage(ctx, params.RoomId, params.Sender, params.Text)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to post message", "error", err)
		return domain.ChatMessage{}, err
	}

	return message, nil
}

type GetMessagesParams struct {
	RoomId string
	Viewer domain.User
	// SinceId limits the result to messages after it.
	SinceId string
}

func (s service) GetMessages(ctx context.Context, params *GetMessagesParams) ([]domain.ChatMessage, error) {
	if _, err := s.GetRoom(ctx, &GetRoomParams{RoomId: params.RoomId, Viewer: params.Viewer}); err != nil {
		return nil, err
	}

	messages, err := s.engine.PollMessages(ctx, params.RoomId)
	if err != nil {
		return nil, err
	}

	return playback.NewMessagesSince(messages, params.SinceId), nil
}
