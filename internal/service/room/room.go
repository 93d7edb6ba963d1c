package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

var (
	ErrPermissionDenied = roomrepo.ErrPermissionDenied
	ErrNotMember        = fmt.Errorf("not a room member: %w", domain.ErrUnauthorized)
)

type CreateRoomParams struct {
	Creator   domain.User
	Name      string
	IsPrivate bool
	VideoId   string
}

// CreateRoom creates a room hosted by the creator and marks the creator
// present.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (domain.Room, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Creator, UserRule...),
		validation.Field(&params.Name, RoomNameRule...),
	); err != nil {
		return domain.Room{}, invalid(err)
	}

	if params.VideoId != "" {
		if _, err := domain.ResolveVideo(params.VideoId, nil); err != nil {
			return domain.Room{}, invalid(err)
		}
	}

	room, err := s.roomRepo.Create(ctx, &roomrepo.CreateParams{
		Name:          params.Name,
		Creator:       params.Creator,
		IsPrivate:     params.IsPrivate,
		ActiveVideoId: params.VideoId,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to create room", "error", err)
		return domain.Room{}, err
	}
	metrics.RoomsCreated.Inc()
	s.logger.InfoContext(ctx, "room created", "room_id", room.Id, "is_private", room.IsPrivate)

	s.heartbeat(ctx, room.Id, params.Creator)

	return room, nil
}

// heartbeat is best effort: the next tick of the client refreshes presence.
func (s service) heartbeat(ctx context.Context, roomId string, user domain.User) {
	if err := s.tracker.Heartbeat(ctx, roomId, user); err != nil {
		s.logger.WarnContext(ctx, "failed to write heartbeat", "room_id", roomId, "error", err)
	}
}

type JoinRoomParams struct {
	User       domain.User
	RoomId     string
	InviteCode string
}

// JoinRoom adds the user to a room found by id or by invite code. A private
// room can only be joined by id by its existing members, its owner or an
// admin.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (domain.Room, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.User, UserRule...),
		validation.Field(&params.RoomId, validation.When(params.InviteCode == "", RoomIdRule...)),
		validation.Field(&params.InviteCode, append([]validation.Rule{validation.When(params.RoomId == "", validation.Required)}, InviteCodeRule...)...),
	); err != nil {
		return domain.Room{}, invalid(err)
	}

	var (
		room domain.Room
		err  error
	)
	if params.InviteCode != "" {
		room, err = s.roomRepo.GetByInviteCode(ctx, params.InviteCode)
		if err == nil && params.RoomId != "" && room.Id != params.RoomId {
			err = domain.ErrInviteCodeNotFound
		}
	} else {
		room, err = s.roomRepo.GetById(ctx, params.RoomId)
		if err == nil && !canAccess(room, params.User) {
			err = fmt.Errorf("%w: room %s is private", ErrPermissionDenied, room.Id)
		}
	}
	if err != nil {
		s.logger.InfoContext(ctx, "failed to find room to join", "error", err)
		return domain.Room{}, err
	}

	room, err = s.roomRepo.AddUser(ctx, &roomrepo.AddUserParams{RoomId: room.Id, User: params.User})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to add user", "error", err)
		return domain.Room{}, err
	}

	s.heartbeat(ctx, room.Id, params.User)

	return room, nil
}

func canAccess(room domain.Room, user domain.User) bool {
	return !room.IsPrivate || room.IsMember(user.Id) || room.IsOwner(user.Id) || user.IsAdmin()
}

type GetRoomParams struct {
	RoomId string
	Viewer domain.User
}

func (s service) GetRoom(ctx context.Context, params *GetRoomParams) (domain.Room, error) {
	room, err := s.roomRepo.GetById(ctx, params.RoomId)
	if err != nil {
		return domain.Room{}, err
	}

	if !canAccess(room, params.Viewer) {
		return domain.Room{}, fmt.Errorf("%w: room %s is private", ErrPermissionDenied, room.Id)
	}

	return room, nil
}

func (s service) ListRooms(ctx context.Context, viewer domain.User) ([]domain.Room, error) {
	return s.roomRepo.List(ctx, viewer)
}

type SetPrivacyParams struct {
	RoomId    string
	Actor     domain.User
	IsPrivate bool
}

func (s service) SetPrivacy(ctx context.Context, params *SetPrivacyParams) (domain.Room, error) {
	room, err := s.roomRepo.SetPrivacy(ctx, &roomrepo.SetPrivacyParams{
		RoomId:    params.RoomId,
		Actor:     params.Actor,
		IsPrivate: params.IsPrivate,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to set privacy", "error", err)
		return domain.Room{}, err
	}

	return room, nil
}

type ChangeVideoParams struct {
	RoomId  string
	Actor   domain.User
	VideoId string
}

// ChangeVideo updates the room's active video and publishes the
// video-changed marker so every participant restarts on the new video.
func (s service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (domain.Room, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.VideoId, validation.Required),
	); err != nil {
		return domain.Room{}, invalid(err)
	}

	room, err := s.roomRepo.ChangeVideo(ctx, &roomrepo.ChangeVideoParams{
		RoomId:  params.RoomId,
		Actor:   params.Actor,
		VideoId: params.VideoId,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to change video", "error", err)
		return domain.Room{}, err
	}

	if _, err := s.engine.PublishVideoChange(ctx, room.Id, params.VideoId, params.Actor.Id); err != nil {
		s.logger.InfoContext(ctx, "failed to publish video change", "error", err)
		return domain.Room{}, err
	}

	return room, nil
}

type DeleteRoomParams struct {
	RoomId string
	Actor  domain.User
}

func (s service) DeleteRoom(ctx context.Context, params *DeleteRoomParams) error {
	if err := s.roomRepo.Delete(ctx, &roomrepo.DeleteParams{RoomId: params.RoomId, Actor: params.Actor}); err != nil {
		s.logger.InfoContext(ctx, "failed to delete room", "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)

	return nil
}

// memberRoom loads the room and checks user may take part in it.
func (s service) memberRoom(ctx context.Context, roomId string, user domain.User) (domain.Room, error) {
	room, err := s.roomRepo.GetById(ctx, roomId)
	if err != nil {
		return domain.Room{}, err
	}

	if !room.IsMember(user.Id) && !user.IsAdmin() {
		return domain.Room{}, fmt.Errorf("%w: user %s in room %s", ErrNotMember, user.Id, roomId)
	}

	return room, nil
}

// SweepPresence removes presence entries older than olderThan in every room.
// A room failing to sweep does not stop the others.
func (s service) SweepPresence(ctx context.Context, olderThan time.Duration) (int, error) {
	rooms, err := s.roomRepo.List(ctx, domain.User{Role: domain.RoleAdmin})
	if err != nil {
		return 0, fmt.Errorf("failed to list rooms: %w", err)
	}

	var (
		total int
		errs  []error
	)
	for _, room := range rooms {
		n, err := s.tracker.Sweep(ctx, room.Id, olderThan)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}

	return total, errors.Join(errs...)
}
