package inmemory

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

const writeWait = 5 * time.Second

type entry struct {
	roomId string
	userId string
	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

type repo struct {
	conns  map[*websocket.Conn]*entry
	rooms  map[string]map[*websocket.Conn]struct{}
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[*websocket.Conn]*entry),
		rooms:  make(map[string]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, roomId, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("called", "room_id", roomId, "user_id", userId)
	if _, ok := r.conns[conn]; ok {
		r.logger.Debug("returned", "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.conns[conn] = &entry{roomId: roomId, userId: userId}
	if r.rooms[roomId] == nil {
		r.rooms[roomId] = make(map[*websocket.Conn]struct{})
	}
	r.rooms[roomId][conn] = struct{}{}

	return nil
}

// Remove unregisters conn and closes it.
func (r *repo) Remove(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		r.logger.Debug("returned", "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}
	conn.Close()

	delete(r.conns, conn)
	delete(r.rooms[e.roomId], conn)
	if len(r.rooms[e.roomId]) == 0 {
		delete(r.rooms, e.roomId)
	}

	r.logger.Debug("removed connection", "room_id", e.roomId, "user_id", e.userId)
	return nil
}

func (r *repo) GetUserId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return e.userId, nil
}

func (r *repo) ListByRoom(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.rooms[roomId]))
	for conn := range r.rooms[roomId] {
		conns = append(conns, conn)
	}

	return conns
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Send writes v as JSON to conn, serialized with any other writer of conn.
func (r *repo) Send(conn *websocket.Conn, v any) error {
	r.mu.RLock()
	e, ok := r.conns[conn]
	r.mu.RUnlock()
	if !ok {
		return connection.ErrNotFound
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	return conn.WriteJSON(v)
}

// Broadcast sends every connection of roomId the frame built for it, skipping
// connections for which frameFor reports false, and reports all failures.
func (r *repo) Broadcast(roomId string, frameFor func(conn *websocket.Conn) (any, bool)) error {
	var errs []error
	for _, conn := range r.ListByRoom(roomId) {
		v, ok := frameFor(conn)
		if !ok {
			continue
		}

		if err := r.Send(conn, v); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
