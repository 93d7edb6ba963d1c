package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/rest"
)

const (
	typePlaybackUpdated = "PLAYBACK_UPDATED"
	typeMessagesUpdated = "MESSAGES_UPDATED"
	typeError           = "ERROR"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c *controller) serveRoomWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := c.getUserFromCtx(ctx)
	roomId := c.getRoomIdFromCtx(ctx)

	found, err := c.roomService.GetRoom(ctx, &room.GetRoomParams{RoomId: roomId, Viewer: user})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if !found.IsMember(user.Id) {
		c.writeError(w, r, fmt.Errorf("%w: join the room first", room.ErrNotMember))
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	cursor := c.openCursor(conn)
	defer c.closeCursor(conn)

	if err := c.connRepo.Add(conn, roomId, user.Id); err != nil {
		c.logger.WarnContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}
	metrics.PushConnections.Inc()
	defer func() {
		metrics.PushConnections.Dec()
		if err := c.connRepo.Remove(conn); err != nil {
			c.logger.DebugContext(ctx, "failed to remove connection", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	// Closing conn unblocks the reader when the push loop stops and the
	// other way round.
	g.Go(func() error {
		defer conn.Close()
		return c.pushLoop(gctx, conn, cursor, roomId, user)
	})
	g.Go(func() error {
		defer conn.Close()
		return c.wsmux.ServeConn(gctx, conn)
	})

	if err := g.Wait(); err != nil && !isClosed(err) {
		c.logger.InfoContext(ctx, "websocket closed", "error", err)
	}
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func (c *controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.InfoContext(ctx, "websocket message failed", "error", err)

	if sendErr := c.connRepo.Send(conn, &Output{
		Type:    typeError,
		Payload: rest.Envelope{"error": err.Error(), "status": errorStatus(err)},
	}); sendErr != nil {
		c.logger.DebugContext(ctx, "failed to send error frame", "error", sendErr)
	}
}

// PublishStateInput mirrors the playback PUT body: position and volume are
// required so a partial frame cannot reset them.
type PublishStateInput struct {
	CurrentTime         *float64 `json:"currentTime" validate:"required,gte=0"`
	IsPlaying           bool     `json:"isPlaying"`
	Volume              *float64 `json:"volume" validate:"required,gte=0,lte=1"`
	LastWriterTimestamp int64    `json:"lastWriterTimestamp" validate:"gte=0"`
}

func (c *controller) handlePublishState(ctx context.Context, _ *websocket.Conn, input PublishStateInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, validationErrors)
	}

	roomId := c.getRoomIdFromCtx(ctx)
	resp, err := c.roomService.PublishPlayback(ctx, &room.PublishPlaybackParams{
		RoomId:              roomId,
		Writer:              c.getUserFromCtx(ctx),
		CurrentTime:         *input.CurrentTime,
		IsPlaying:           input.IsPlaying,
		Volume:              *input.Volume,
		LastWriterTimestamp: input.LastWriterTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to publish state: %w", err)
	}

	if resp.Accepted {
		c.pushPlayback(ctx, roomId, resp.State)
	}

	return nil
}

type PostMessageInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

var errRateLimited = errors.New("too many messages")

func (c *controller) handlePostMessage(ctx context.Context, _ *websocket.Conn, input PostMessageInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, validationErrors)
	}

	user := c.getUserFromCtx(ctx)
	if !c.allowChat(user.Id) {
		return errRateLimited
	}

	roomId := c.getRoomIdFromCtx(ctx)
	message, err := c.roomService.PostMessage(ctx, &room.PostMessageParams{
		RoomId: roomId,
		Sender: user,
		Text:   input.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}

	c.pushMessages(ctx, roomId, []domain.ChatMessage{message})
	return nil
}

type EmptyInput struct{}

func (c *controller) handleHeartbeat(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	if err := c.roomService.Heartbeat(ctx, &room.HeartbeatParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		User:   c.getUserFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to heartbeat: %w", err)
	}

	return nil
}
