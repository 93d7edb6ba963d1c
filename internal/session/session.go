// Package session is the Room Session Controller: it binds one client's
// media element to the Playback Sync Engine. Local intents are published
// immediately; remote state is polled, reconciled and applied locally
// without ever being published back.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/service/playback"
	roomservice "github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

type iSyncEngine interface {
	PublishState(ctx context.Context, roomId string, state domain.PlaybackState) (domain.PlaybackState, bool, error)
	PollState(ctx context.Context, roomId string) (*domain.PlaybackState, error)
	PostMessage(ctx context.Context, roomId string, user domain.User, text string) (domain.ChatMessage, error)
	PollMessages(ctx context.Context, roomId string) ([]domain.ChatMessage, error)
	Now() time.Time
}

type iPresenceTracker interface {
	Heartbeat(ctx context.Context, roomId string, user domain.User) error
	ActiveViewers(ctx context.Context, roomId string) ([]domain.User, error)
}

type iRoomService interface {
	ChangeVideo(ctx context.Context, params *roomservice.ChangeVideoParams) (domain.Room, error)
}

type Config struct {
	SyncInterval      time.Duration
	ChatInterval      time.Duration
	HeartbeatInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		SyncInterval:      2 * time.Second,
		ChatInterval:      time.Second,
		HeartbeatInterval: 2 * time.Second,
	}
}

type Params struct {
	Room   domain.Room
	User   domain.User
	Player MediaElement
	// OnMessages, when set, receives every batch of newly seen messages.
	OnMessages func(messages []domain.ChatMessage)
}

type Controller struct {
	engine  iSyncEngine
	tracker iPresenceTracker
	rooms   iRoomService
	logger  *slog.Logger
	cfg     Config

	roomId     string
	user       domain.User
	player     MediaElement
	onMessages func([]domain.ChatMessage)

	mu            sync.Mutex
	room          domain.Room
	remote        *domain.PlaybackState
	lastPublished int64
	viewers       []domain.User
	messages      []domain.ChatMessage
	lastSeenId    string

	done      chan struct{}
	closeOnce sync.Once
}

func NewController(engine iSyncEngine, tracker iPresenceTracker, rooms iRoomService, logger *slog.Logger, cfg Config, params *Params) *Controller {
	defaults := DefaultConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaults.SyncInterval
	}
	if cfg.ChatInterval <= 0 {
		cfg.ChatInterval = defaults.ChatInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}

	if params.Player.VideoId() == "" {
		params.Player.LoadVideo(params.Room.ActiveVideoId)
	}

	return &Controller{
		engine:     engine,
		tracker:    tracker,
		rooms:      rooms,
		logger:     logger,
		cfg:        cfg,
		roomId:     params.Room.Id,
		user:       params.User,
		player:     params.Player,
		onMessages: params.OnMessages,
		room:       params.Room,
		done:       make(chan struct{}),
	}
}

func (c *Controller) withLogCtx(ctx context.Context) context.Context {
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", c.roomId))
	return ctxlogger.AppendCtx(ctx, slog.String("user_id", c.user.Id))
}

// Run drives the sync, chat and heartbeat loops until ctx is done or Close
// is called. Each loop ticks once right away.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(c.withLogCtx(ctx))
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		c.loop(ctx, c.cfg.SyncInterval, c.OnRemoteTick)
		return nil
	})
	g.Go(func() error {
		c.loop(ctx, c.cfg.ChatInterval, c.OnChatTick)
		return nil
	})
	g.Go(func() error {
		c.loop(ctx, c.cfg.HeartbeatInterval, c.OnHeartbeatTick)
		return nil
	})

	c.logger.InfoContext(ctx, "session started")
	err := g.Wait()
	c.logger.InfoContext(ctx, "session stopped")

	return err
}

func (c *Controller) loop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// Close is the teardown hook: it stops all loops of Run. Safe to call more
// than once and before Run.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Controller) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Controller) local() playback.LocalState {
	return playback.LocalState{
		VideoId:     c.player.VideoId(),
		CurrentTime: c.player.CurrentTime(),
		IsPlaying:   c.player.IsPlaying(),
		Volume:      c.player.Volume(),
	}
}

func (c *Controller) publish(ctx context.Context) error {
	local := c.local()
	state, accepted, err := c.engine.PublishState(ctx, c.roomId, domain.PlaybackState{
		CurrentTime:   local.CurrentTime,
		IsPlaying:     local.IsPlaying,
		Volume:        local.Volume,
		ActiveVideoId: local.VideoId,
		WriterId:      c.user.Id,
	})
	if err != nil {
		return err
	}

	if accepted {
		c.mu.Lock()
		c.lastPublished = max(c.lastPublished, state.LastWriterTimestamp)
		c.remote = &state
		c.mu.Unlock()
	}

	return nil
}

func (c *Controller) OnLocalPlayPause(ctx context.Context) error {
	c.player.SetPlaying(!c.player.IsPlaying())
	if err := c.publish(c.withLogCtx(ctx)); err != nil {
		return fmt.Errorf("failed to publish play/pause: %w", err)
	}

	return nil
}

func (c *Controller) OnLocalSeek(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: negative seek position", domain.ErrInvalidInput)
	}

	c.player.Seek(seconds)
	if err := c.publish(c.withLogCtx(ctx)); err != nil {
		return fmt.Errorf("failed to publish seek: %w", err)
	}

	return nil
}

func (c *Controller) OnLocalVolume(ctx context.Context, volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume must be within [0, 1]", domain.ErrInvalidInput)
	}

	c.player.SetVolume(volume)
	if err := c.publish(c.withLogCtx(ctx)); err != nil {
		return fmt.Errorf("failed to publish volume: %w", err)
	}

	return nil
}

// OnVideoChange switches the room video through the room service, which
// checks the user may do so and publishes the video-changed marker.
func (c *Controller) OnVideoChange(ctx context.Context, videoId string) error {
	room, err := c.rooms.ChangeVideo(c.withLogCtx(ctx), &roomservice.ChangeVideoParams{
		RoomId:  c.roomId,
		Actor:   c.user,
		VideoId: videoId,
	})
	if err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	c.player.LoadVideo(videoId)
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()

	return nil
}

func (c *Controller) SendMessage(ctx context.Context, text string) (domain.ChatMessage, error) {
	message, err := c.engine.PostMessage(c.withLogCtx(ctx), c.roomId, c.user, text)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to send message: %w", err)
	}

	return message, nil
}

// OnRemoteTick polls the shared state and applies the reconciled actions to
// the local player. Store failures skip the tick.
func (c *Controller) OnRemoteTick(ctx context.Context) {
	if c.closed() {
		return
	}

	remote, err := c.engine.PollState(ctx, c.roomId)
	if err != nil {
		metrics.SkippedTicks.WithLabelValues("sync").Inc()
		c.logger.WarnContext(ctx, "skipping sync tick", "error", err)
		return
	}

	if remote == nil {
		return
	}

	c.mu.Lock()
	// Our own newer write has not reached this read yet.
	if remote.LastWriterTimestamp < c.lastPublished {
		c.mu.Unlock()
		return
	}
	c.remote = remote
	c.mu.Unlock()

	now := c.engine.Now()
	local := c.local()
	if remote.ActiveVideoId == "" || remote.ActiveVideoId == local.VideoId {
		metrics.DriftSeconds.Observe(playback.Drift(local, remote, now))
	}

	for _, action := range playback.Reconcile(local, remote, now) {
		c.apply(ctx, action)
	}
}

func (c *Controller) apply(ctx context.Context, action playback.Action) {
	metrics.ReconcileActions.WithLabelValues(string(action.Kind)).Inc()
	c.logger.DebugContext(ctx, "applying remote action", "action", action)

	switch action.Kind {
	case playback.ActionLoadVideo:
		c.player.LoadVideo(action.VideoId)
		c.mu.Lock()
		c.room.ActiveVideoId = action.VideoId
		c.mu.Unlock()
	case playback.ActionSeek:
		c.player.Seek(action.Time)
	case playback.ActionSetPlaying:
		c.player.SetPlaying(action.Playing)
	case playback.ActionSetVolume:
		c.player.SetVolume(action.Volume)
	}
}

func (c *Controller) OnChatTick(ctx context.Context) {
	if c.closed() {
		return
	}

	messages, err := c.engine.PollMessages(ctx, c.roomId)
	if err != nil {
		metrics.SkippedTicks.WithLabelValues("chat").Inc()
		c.logger.WarnContext(ctx, "skipping chat tick", "error", err)
		return
	}

	c.mu.Lock()
	fresh := playback.NewMessagesSince(messages, c.lastSeenId)
	if len(fresh) == len(messages) && c.lastSeenId != "" && len(c.messages) > 0 {
		// lastSeenId was trimmed out of the history; only report what is
		// newer than the last message we know.
		last := c.messages[len(c.messages)-1].Timestamp
		fresh = fresh[:0:0]
		for _, m := range messages {
			if m.Timestamp > last {
				fresh = append(fresh, m)
			}
		}
	}
	c.messages = messages
	if len(messages) > 0 {
		c.lastSeenId = messages[len(messages)-1].Id
	}
	c.mu.Unlock()

	if len(fresh) > 0 && c.onMessages != nil {
		c.onMessages(fresh)
	}
}

func (c *Controller) OnHeartbeatTick(ctx context.Context) {
	if c.closed() {
		return
	}

	if err := c.tracker.Heartbeat(ctx, c.roomId, c.user); err != nil {
		metrics.SkippedTicks.WithLabelValues("heartbeat").Inc()
		c.logger.WarnContext(ctx, "skipping heartbeat tick", "error", err)
		return
	}

	viewers, err := c.tracker.ActiveViewers(ctx, c.roomId)
	if err != nil {
		metrics.SkippedTicks.WithLabelValues("heartbeat").Inc()
		c.logger.WarnContext(ctx, "failed to refresh viewers", "error", err)
		return
	}

	c.mu.Lock()
	c.viewers = viewers
	c.mu.Unlock()
}

type View struct {
	Room     domain.Room
	Local    playback.LocalState
	Remote   *domain.PlaybackState
	Viewers  []domain.User
	Messages []domain.ChatMessage
}

// View is a snapshot for rendering.
func (c *Controller) View() View {
	local := c.local()

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Room:     c.room,
		Local:    local,
		Viewers:  append([]domain.User(nil), c.viewers...),
		Messages: append([]domain.ChatMessage(nil), c.messages...),
	}
	if c.remote != nil {
		remote := *c.remote
		v.Remote = &remote
	}

	return v
}
