package room

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)

// mergeFields writes only the given top-level room fields. Nil pointer
// values are left untouched in the store.
func (r repo) mergeFields(ctx context.Context, roomId string, fields map[string]any) error {
	raw, err := omitnilpointers.MarshalFields(fields)
	if err != nil {
		return err
	}

	if err := r.store.Merge(ctx, store.RoomKey(roomId), store.Document(raw)); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

// AddUser is idempotent: a user that is already a member is not added again.
func (r repo) AddUser(ctx context.Context, params *AddUserParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	room, err := r.GetById(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	users, added := room.Users.Add(domain.Member{
		Id:   params.User.Id,
		Name: params.User.DisplayName(),
		Role: domain.MemberRoleViewer,
	})
	if !added {
		return room, nil
	}

	if err := r.mergeFields(ctx, room.Id, map[string]any{"users": users}); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}
	room.Users = users

	return room, nil
}

// SetPrivacy toggles the room between public and private. Going private
// generates an invite code only if the room never had one; going public keeps
// the old code so that a later toggle back restores it.
func (r repo) SetPrivacy(ctx context.Context, params *SetPrivacyParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	room, err := r.GetById(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	if err := authorize(room, params.Actor, actionSetPrivacy); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	var inviteCode *string
	if params.IsPrivate && room.InviteCode == "" {
		code, err := r.newInviteCode(ctx)
		if err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return domain.Room{}, fmt.Errorf("failed to generate invite code: %w", err)
		}
		inviteCode = &code
	}

	if err := r.mergeFields(ctx, room.Id, map[string]any{
		"isPrivate":  &params.IsPrivate,
		"inviteCode": inviteCode,
	}); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	room.IsPrivate = params.IsPrivate
	if inviteCode != nil {
		room.InviteCode = *inviteCode
	}

	return room, nil
}

func (r repo) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	room, err := r.GetById(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	if err := authorize(room, params.Actor, actionChangeVideo); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	if _, err := domain.ResolveVideo(params.VideoId, room.CustomVideos); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	if err := r.mergeFields(ctx, room.Id, map[string]any{"activeVideoId": params.VideoId}); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}
	room.ActiveVideoId = params.VideoId

	return room, nil
}

// AddCustomVideo appends a video to the room's custom list. The video id is
// generated when empty.
func (r repo) AddCustomVideo(ctx context.Context, params *AddCustomVideoParams) (domain.Video, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	room, err := r.GetById(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Video{}, err
	}

	if err := authorize(room, params.Actor, actionAddVideo); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Video{}, err
	}

	video := params.Video
	if video.Id == "" {
		video.Id = "custom-" + uuid.NewString()
	}

	if _, err := domain.ResolveVideo(video.Id, room.CustomVideos); err == nil {
		return domain.Video{}, fmt.Errorf("video %s: %w", video.Id, domain.ErrConflict)
	}

	videos := append(slices.Clone(room.CustomVideos), video)
	if err := r.mergeFields(ctx, room.Id, map[string]any{"customVideos": videos}); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Video{}, err
	}

	return video, nil
}

// Delete hard-deletes the room together with its playback, presence and
// chat records.
func (r repo) Delete(ctx context.Context, params *DeleteParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	room, err := r.GetById(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if err := authorize(room, params.Actor, actionDelete); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	for _, key := range []string{
		store.PlaybackKey(room.Id),
		store.PresenceKey(room.Id),
		store.MessagesKey(room.Id),
		store.RoomKey(room.Id),
	} {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return fmt.Errorf("failed to delete room: %w", err)
		}
	}

	return nil
}
