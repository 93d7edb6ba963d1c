package room

import (
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

var (
	ErrPermissionDenied = fmt.Errorf("permission denied: %w", domain.ErrUnauthorized)
	ErrInviteCodeTaken  = fmt.Errorf("invite code already in use: %w", domain.ErrConflict)
	ErrRoomIdTaken      = fmt.Errorf("room id already in use: %w", domain.ErrConflict)
)
