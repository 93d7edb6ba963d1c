package room

import (
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

type action string

const (
	actionSetPrivacy  action = "set privacy"
	actionChangeVideo action = "change video"
	actionAddVideo    action = "add video"
	actionDelete      action = "delete"
)

// authorize is the capability check run by every privileged mutation.
func authorize(room domain.Room, actor domain.User, a action) error {
	var allowed bool
	switch a {
	case actionSetPrivacy:
		allowed = room.IsOwner(actor.Id) || actor.IsAdmin()
	case actionChangeVideo:
		allowed = room.IsOwner(actor.Id) || actor.IsModerator()
	case actionAddVideo:
		allowed = room.IsMember(actor.Id) || room.IsOwner(actor.Id) || actor.IsAdmin()
	case actionDelete:
		allowed = room.IsOwner(actor.Id) || actor.IsModerator()
	}

	if !allowed {
		return fmt.Errorf("%w: %s room %s", ErrPermissionDenied, a, room.Id)
	}

	return nil
}
