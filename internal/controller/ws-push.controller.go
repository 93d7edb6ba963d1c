package controller

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/service/room"
)

// pushCursor is what one push connection has been sent so far. The poll
// loop and the in-process broadcasts share it, so every playback revision
// and every chat message reaches the connection once.
type pushCursor struct {
	mu           sync.Mutex
	lastRevision int64
	// lastSeenId is where the next poll for messages starts.
	lastSeenId string
	// broadcasted holds ids sent ahead of the poll, until the poll passes them.
	broadcasted map[string]struct{}
}

func newPushCursor() *pushCursor {
	return &pushCursor{
		lastRevision: -1,
		broadcasted:  make(map[string]struct{}),
	}
}

// takeState reports whether state is newer than the last one sent and marks
// it sent.
func (p *pushCursor) takeState(state *domain.PlaybackState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state == nil || state.Revision <= p.lastRevision {
		return false
	}
	p.lastRevision = state.Revision

	return true
}

func (p *pushCursor) since() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastSeenId
}

// takeBroadcast drops the messages already sent and marks the rest.
func (p *pushCursor) takeBroadcast(messages []domain.ChatMessage) []domain.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if _, ok := p.broadcasted[m.Id]; ok {
			continue
		}
		p.broadcasted[m.Id] = struct{}{}
		fresh = append(fresh, m)
	}

	return fresh
}

// takePolled advances the poll position past messages and returns the ones
// no broadcast delivered.
func (p *pushCursor) takePolled(messages []domain.ChatMessage) []domain.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(messages) == 0 {
		return nil
	}
	p.lastSeenId = messages[len(messages)-1].Id

	fresh := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if _, ok := p.broadcasted[m.Id]; ok {
			delete(p.broadcasted, m.Id)
			continue
		}
		fresh = append(fresh, m)
	}

	return fresh
}

func (c *controller) openCursor(conn *websocket.Conn) *pushCursor {
	c.cursorsMu.Lock()
	defer c.cursorsMu.Unlock()

	cursor := newPushCursor()
	c.cursors[conn] = cursor

	return cursor
}

func (c *controller) closeCursor(conn *websocket.Conn) {
	c.cursorsMu.Lock()
	defer c.cursorsMu.Unlock()

	delete(c.cursors, conn)
}

func (c *controller) cursor(conn *websocket.Conn) (*pushCursor, bool) {
	c.cursorsMu.Lock()
	defer c.cursorsMu.Unlock()

	cursor, ok := c.cursors[conn]
	return cursor, ok
}

// pushLoop polls the store for the connection and sends what changed since
// the last frame. Store failures skip the tick.
func (c *controller) pushLoop(ctx context.Context, conn *websocket.Conn, cursor *pushCursor, roomId string, user domain.User) error {
	tick := func() error {
		state, err := c.roomService.GetPlayback(ctx, &room.GetPlaybackParams{RoomId: roomId, Viewer: user})
		switch {
		case err != nil:
			metrics.SkippedTicks.WithLabelValues("push").Inc()
			c.logger.WarnContext(ctx, "skipping push tick", "error", err)
		case cursor.takeState(state):
			if err := c.connRepo.Send(conn, &Output{Type: typePlaybackUpdated, Payload: state}); err != nil {
				return err
			}
		}

		messages, err := c.roomService.GetMessages(ctx, &room.GetMessagesParams{RoomId: roomId, Viewer: user, SinceId: cursor.since()})
		if err != nil {
			metrics.SkippedTicks.WithLabelValues("push").Inc()
			c.logger.WarnContext(ctx, "skipping push tick", "error", err)
			return nil
		}

		if fresh := cursor.takePolled(messages); len(fresh) > 0 {
			return c.connRepo.Send(conn, &Output{Type: typeMessagesUpdated, Payload: fresh})
		}

		return nil
	}

	if err := tick(); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}

// pushPlayback forwards an accepted state to the push connections of this
// process right away.
func (c *controller) pushPlayback(ctx context.Context, roomId string, state domain.PlaybackState) {
	if !c.cfg.PushTransport {
		return
	}

	if err := c.connRepo.Broadcast(roomId, func(conn *websocket.Conn) (any, bool) {
		cursor, ok := c.cursor(conn)
		if !ok || !cursor.takeState(&state) {
			return nil, false
		}

		return &Output{Type: typePlaybackUpdated, Payload: state}, true
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast playback", "error", err)
	}
}

func (c *controller) pushMessages(ctx context.Context, roomId string, messages []domain.ChatMessage) {
	if !c.cfg.PushTransport {
		return
	}

	if err := c.connRepo.Broadcast(roomId, func(conn *websocket.Conn) (any, bool) {
		cursor, ok := c.cursor(conn)
		if !ok {
			return nil, false
		}

		fresh := cursor.takeBroadcast(messages)
		if len(fresh) == 0 {
			return nil, false
		}

		return &Output{Type: typeMessagesUpdated, Payload: fresh}, true
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast messages", "error", err)
	}
}
