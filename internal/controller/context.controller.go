package controller

import (
	"context"

	"github.com/sharetube/watchparty/internal/domain"
)

type contextKey int

const (
	userCtxKey contextKey = iota
	tokenCtxKey
	roomIdCtxKey
)

func (c *controller) getUserFromCtx(ctx context.Context) domain.User {
	user, ok := ctx.Value(userCtxKey).(domain.User)
	if !ok {
		return domain.User{}
	}

	return user
}

func (c *controller) getTokenFromCtx(ctx context.Context) string {
	token, ok := ctx.Value(tokenCtxKey).(string)
	if !ok {
		return ""
	}

	return token
}

func (c *controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, ok := ctx.Value(roomIdCtxKey).(string)
	if !ok {
		return ""
	}

	return roomId
}
