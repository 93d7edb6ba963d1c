// Package room is the Room Repository: CRUD over room records kept in a
// store.Store under room:<id>.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/pkg/randstr"
)

const (
	InviteCodeLength = 8
	roomIdRandLength = 7
)

var (
	inviteCodeLetters = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	base36Letters     = []byte("0123456789abcdefghijklmnopqrstuvwxyz")
)

type iGenerator interface {
	GenerateRandomString(length int) string
}

type repo struct {
	store       store.Store
	logger      *slog.Logger
	inviteCodes iGenerator
	idSuffixes  iGenerator
	now         func() time.Time
}

func NewRepo(s store.Store, logger *slog.Logger) *repo {
	return &repo{
		store:       s,
		logger:      logger,
		inviteCodes: randstr.New(inviteCodeLetters),
		idSuffixes:  randstr.New(base36Letters),
		now:         time.Now,
	}
}

func (r repo) newRoomId() string {
	return strconv.FormatInt(r.now().UnixMilli(), 10) + "-" + r.idSuffixes.GenerateRandomString(roomIdRandLength)
}

// newInviteCode returns a code no stored room uses, regenerating once on a
// collision.
func (r repo) newInviteCode(ctx context.Context) (string, error) {
	for _i := 0; _i < 2; _i++ {
		code := r.inviteCodes.GenerateRandomString(InviteCodeLength)
		_, err := r.GetByInviteCode(ctx, code)
		if errors.Is(err, domain.ErrInviteCodeNotFound) {
			return code, nil
		}

		if err != nil {
			return "", err
		}
	}

	return "", ErrInviteCodeTaken
}

// checkInviteCode fails when a stored room already uses code. A hit on
// roomId itself is reported as the id being taken.
func (r repo) checkInviteCode(ctx context.Context, code, roomId string) error {
	holder, err := r.GetByInviteCode(ctx, code)
	switch {
	case errors.Is(err, domain.ErrInviteCodeNotFound):
		return nil
	case err != nil:
		return err
	case roomId != "" && holder.Id == roomId:
		return ErrRoomIdTaken
	default:
		return ErrInviteCodeTaken
	}
}

func (r repo) Create(ctx context.Context, params *CreateParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	room := domain.Room{
		Id:            params.Id,
		Name:          params.Name,
		CreatedBy:     params.Creator.Id,
		CreatedAt:     r.now().UTC(),
		IsPrivate:     params.IsPrivate,
		ActiveVideoId: params.ActiveVideoId,
		CustomVideos:  []domain.Video{},
		Users: domain.Members{{
			Id:   params.Creator.Id,
			Name: params.Creator.DisplayName(),
			Role: domain.MemberRoleHost,
		}},
	}
	if room.ActiveVideoId == "" {
		room.ActiveVideoId = domain.DefaultVideoId
	}

	if params.IsPrivate {
		room.InviteCode = params.InviteCode
		if room.InviteCode != "" {
			if err := r.checkInviteCode(ctx, room.InviteCode, room.Id); err != nil {
				r.logger.DebugContext(ctx, "returned", "error", err)
				return domain.Room{}, err
			}
		} else {
			code, err := r.newInviteCode(ctx)
			if err != nil {
				r.logger.DebugContext(ctx, "returned", "error", err)
				return domain.Room{}, fmt.Errorf("failed to generate invite code: %w", err)
			}
			room.InviteCode = code
		}
	}

	generateId := room.Id == ""
	for attempt := 0; ; attempt++ {
		if generateId {
			room.Id = r.newRoomId()
		}

		if err := room.Validate(); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return domain.Room{}, err
		}

		doc, err := store.Encode(room)
		if err != nil {
			return domain.Room{}, err
		}

		err = r.store.Create(ctx, store.RoomKey(room.Id), doc)
		if err == nil {
			return room, nil
		}

		if !errors.Is(err, store.ErrAlreadyExists) {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return domain.Room{}, fmt.Errorf("failed to create room: %w", err)
		}

		if !generateId || attempt > 0 {
			r.logger.DebugContext(ctx, "returned", "error", ErrRoomIdTaken)
			return domain.Room{}, ErrRoomIdTaken
		}
	}
}

func (r repo) GetById(ctx context.Context, roomId string) (domain.Room, error) {
	doc, err := r.store.Get(ctx, store.RoomKey(roomId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Room{}, domain.ErrRoomNotFound
		}

		return domain.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	var room domain.Room
	if err := store.Decode(doc, &room); err != nil {
		return domain.Room{}, fmt.Errorf("failed to decode room %s: %w", roomId, err)
	}

	return room, nil
}

// listAll loads every stored room. Rooms that vanish or fail to decode
// between the key scan and the read are skipped.
func (r repo) listAll(ctx context.Context) ([]domain.Room, error) {
	keys, err := r.store.ListKeysWithPrefix(ctx, store.RoomPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list room keys: %w", err)
	}

	rooms := make([]domain.Room, 0, len(keys))
	for _, key := range keys {
		roomId, ok := store.RoomIdFromKey(key)
		if !ok {
			continue
		}

		room, err := r.GetById(ctx, roomId)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			continue
		case errors.Is(err, store.ErrMalformed):
			r.logger.WarnContext(ctx, "skipping malformed room", "room_id", roomId, "error", err)
			continue
		case err != nil:
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, nil
}

// GetByInviteCode matches codes case-insensitively across all rooms.
func (r repo) GetByInviteCode(ctx context.Context, code string) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"invite_code": code})
	if code == "" {
		return domain.Room{}, domain.ErrInviteCodeNotFound
	}

	rooms, err := r.listAll(ctx)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	for _, room := range rooms {
		if room.MatchesInviteCode(code) {
			return room, nil
		}
	}

	return domain.Room{}, domain.ErrInviteCodeNotFound
}

// List returns rooms visible to viewer, newest first.
func (r repo) List(ctx context.Context, viewer domain.User) ([]domain.Room, error) {
	rooms, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.VisibleTo(viewer) {
			visible = append(visible, room)
		}
	}
	sortByCreatedAtDesc(visible)

	return visible, nil
}
