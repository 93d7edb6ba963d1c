// Package presence is the Presence Tracker: approximate liveness of the users
// that have a room open. Each user owns one field of the room's presence
// document, so concurrent heartbeats never clobber each other.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/store"
)

const DefaultWindow = 10 * time.Second

type Tracker struct {
	store  store.Store
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

type Option func(*Tracker)

func WithWindow(window time.Duration) Option {
	return func(t *Tracker) {
		if window > 0 {
			t.window = window
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(s store.Store, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		logger: logger,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tracker) Window() time.Duration {
	return t.window
}

// Heartbeat refreshes user's lastSeen in the room.
func (t *Tracker) Heartbeat(ctx context.Context, roomId string, user domain.User) error {
	if user.Id == "" {
		return fmt.Errorf("%w: heartbeat without user id", domain.ErrInvalidInput)
	}

	entry := domain.PresenceEntry{
		User:     domain.User{Id: user.Id, Name: user.Name, Email: user.Email},
		LastSeen: t.now().UnixMilli(),
	}

	doc, err := store.Field(user.Id, entry)
	if err != nil {
		return err
	}

	if err := t.store.Merge(ctx, store.PresenceKey(roomId), doc); err != nil {
		return fmt.Errorf("failed to write heartbeat: %w", err)
	}
	metrics.Heartbeats.Inc()

	return nil
}

func (t *Tracker) entries(ctx context.Context, roomId string) ([]domain.PresenceEntry, error) {
	doc, err := t.store.Get(ctx, store.PresenceKey(roomId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	entries := make([]domain.PresenceEntry, 0, len(doc))
	for userId, raw := range doc {
		var entry domain.PresenceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			t.logger.WarnContext(ctx, "skipping malformed presence entry", "room_id", roomId, "user_id", userId, "error", err)
			continue
		}
		entry.User.Id = userId
		entries = append(entries, entry)
	}

	return entries, nil
}

// ActiveViewers returns users seen within the liveness window, ordered by
// name then id.
func (t *Tracker) ActiveViewers(ctx context.Context, roomId string) ([]domain.User, error) {
	entries, err := t.entries(ctx, roomId)
	if err != nil {
		return nil, err
	}

	now := t.now()
	users := make([]domain.User, 0, len(entries))
	for _, entry := range entries {
		if entry.IsActive(now, t.window) {
			users = append(users, entry.User)
		}
	}

	slices.SortFunc(users, func(a, b domain.User) int {
		if c := strings.Compare(a.DisplayName(), b.DisplayName()); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})

	return users, nil
}

// Sweep deletes entries not refreshed within olderThan and reports how many
// were removed. Reads never depend on it; it only bounds storage growth.
func (t *Tracker) Sweep(ctx context.Context, roomId string, olderThan time.Duration) (int, error) {
	entries, err := t.entries(ctx, roomId)
	if err != nil {
		return 0, err
	}

	now := t.now()
	var stale []string
	for _, entry := range entries {
		if !entry.IsActive(now, olderThan) {
			stale = append(stale, entry.User.Id)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	if err := t.store.DeleteFields(ctx, store.PresenceKey(roomId), stale...); err != nil {
		return 0, fmt.Errorf("failed to sweep presence: %w", err)
	}
	metrics.PresenceSwept.Add(float64(len(stale)))

	return len(stale), nil
}
