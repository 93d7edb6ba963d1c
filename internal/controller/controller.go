package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/account"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(ctx context.Context, params *room.CreateRoomParams) (domain.Room, error)
	JoinRoom(ctx context.Context, params *room.JoinRoomParams) (domain.Room, error)
	GetRoom(ctx context.Context, params *room.GetRoomParams) (domain.Room, error)
	ListRooms(ctx context.Context, viewer domain.User) ([]domain.Room, error)
	SetPrivacy(ctx context.Context, params *room.SetPrivacyParams) (domain.Room, error)
	ChangeVideo(ctx context.Context, params *room.ChangeVideoParams) (domain.Room, error)
	AddCustomVideo(ctx context.Context, params *room.AddCustomVideoParams) (domain.Video, error)
	DeleteRoom(ctx context.Context, params *room.DeleteRoomParams) error
	GetPlayback(ctx context.Context, params *room.GetPlaybackParams) (*domain.PlaybackState, error)
	PublishPlayback(ctx context.Context, params *room.PublishPlaybackParams) (*room.PublishPlaybackResponse, error)
	Heartbeat(ctx context.Context, params *room.HeartbeatParams) error
	ActiveViewers(ctx context.Context, params *room.ActiveViewersParams) ([]domain.User, error)
	PostMessage(ctx context.Context, params *room.PostMessageParams) (domain.ChatMessage, error)
	GetMessages(ctx context.Context, params *room.GetMessagesParams) ([]domain.ChatMessage, error)
}

type iAccountService interface {
	Register(ctx context.Context, params *account.RegisterParams) (domain.User, error)
	Login(ctx context.Context, params *account.LoginParams) (*account.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	GetCurrentUser(ctx context.Context, token string) (domain.User, error)
	UpdateProfile(ctx context.Context, params *account.UpdateProfileParams) (domain.User, error)
}

type iConnectionRepo interface {
	Add(conn *websocket.Conn, roomId, userId string) error
	Remove(conn *websocket.Conn) error
	Count() int
	Send(conn *websocket.Conn, v any) error
	Broadcast(roomId string, frameFor func(conn *websocket.Conn) (any, bool)) error
}

type Config struct {
	// PushTransport enables the websocket endpoint.
	PushTransport bool
	// PushInterval is how often each push connection polls the store.
	PushInterval time.Duration
	// ChatRate and ChatBurst bound chat posts per user.
	ChatRate  rate.Limit
	ChatBurst int
}

type controller struct {
	roomService    iRoomService
	accountService iAccountService
	connRepo       iConnectionRepo
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	wsmux          *wsrouter.WSRouter
	logger         *slog.Logger
	cfg            Config

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	cursorsMu sync.Mutex
	cursors   map[*websocket.Conn]*pushCursor
}

func NewController(roomService iRoomService, accountService iAccountService, connRepo iConnectionRepo, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		roomService:    roomService,
		accountService: accountService,
		connRepo:       connRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
		cfg:      *cfg,
		limiters: make(map[string]*rate.Limiter),
		cursors:  make(map[*websocket.Conn]*pushCursor),
	}
	if c.cfg.PushInterval <= 0 {
		c.cfg.PushInterval = time.Second
	}
	if c.cfg.ChatRate <= 0 {
		c.cfg.ChatRate = 5
	}
	if c.cfg.ChatBurst <= 0 {
		c.cfg.ChatBurst = 10
	}
	c.wsmux = c.getWSRouter()

	return c
}

// allowChat reports whether userId may post another chat message now.
func (c *controller) allowChat(userId string) bool {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters[userId]
	if !ok {
		limiter = rate.NewLimiter(c.cfg.ChatRate, c.cfg.ChatBurst)
		c.limiters[userId] = limiter
	}

	return limiter.Allow()
}
