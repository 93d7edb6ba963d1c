// Command watcher is a headless room participant. It runs the Room Session
// Controller against the shared store with a virtual player, which makes
// multi-client sync observable from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/internal/service/account"
	"github.com/sharetube/watchparty/internal/service/playback"
	"github.com/sharetube/watchparty/internal/service/presence"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Headless watch party participant",
	Long: `watcher joins rooms of a watch party deployment as a regular user and
keeps a virtual player in sync with everybody else in the room.

It talks to the same record store as the server, so it must be pointed at
the server's redis (or bolt file when nothing else holds it open).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("email", "", "Account to act as")
	flags.String("password", "", "Password of the account")
	flags.String("secret", "", "Secret shared with the server")
	flags.String("store", app.StoreRedis, "Record store backend: redis or bolt")
	flags.String("bolt-path", "watchparty.db", "Database file of the bolt store")
	flags.String("redis-host", "localhost", "Redis host")
	flags.Int("redis-port", 6379, "Redis port")
	flags.String("redis-password", "", "Redis password")
	flags.Duration("store-timeout", app.DefaultStoreTimeout, "Timeout of a single store operation")
	flags.String("log-level", "WARN", "Logging level")

	viper.BindPFlags(flags)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// the server's variable names work as well
	viper.BindEnv("secret", "WATCHER_SECRET", "SERVER_SECRET")
	viper.BindEnv("redis-host", "WATCHER_REDIS_HOST", "REDIS_HOST")
	viper.BindEnv("redis-port", "WATCHER_REDIS_PORT", "REDIS_PORT")
	viper.BindEnv("redis-password", "WATCHER_REDIS_PASSWORD", "REDIS_PASSWORD")
	viper.BindEnv("email", "WATCHER_EMAIL")
	viper.BindEnv("password", "WATCHER_PASSWORD")

	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(chatCmd)
}

type roomService interface {
	JoinRoom(ctx context.Context, params *room.JoinRoomParams) (domain.Room, error)
	ListRooms(ctx context.Context, viewer domain.User) ([]domain.Room, error)
	ChangeVideo(ctx context.Context, params *room.ChangeVideoParams) (domain.Room, error)
	PostMessage(ctx context.Context, params *room.PostMessageParams) (domain.ChatMessage, error)
}

type accountService interface {
	Login(ctx context.Context, params *account.LoginParams) (*account.LoginResponse, error)
	Logout(ctx context.Context, token string) error
}

// participant is everything a command needs to act as one user.
type participant struct {
	user     domain.User
	token    string
	rooms    roomService
	accounts accountService
	engine   *playback.Engine
	tracker  *presence.Tracker
	logger   *slog.Logger
	close    func() error
}

func newParticipant(ctx context.Context) (*participant, error) {
	email := viper.GetString("email")
	if email == "" {
		return nil, errors.New("--email is required")
	}

	logger, err := app.NewLogger(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	s, closeStore, err := app.OpenStore(ctx, &app.StoreConfig{
		Kind:          viper.GetString("store"),
		BoltPath:      viper.GetString("bolt-path"),
		RedisHost:     viper.GetString("redis-host"),
		RedisPort:     viper.GetInt("redis-port"),
		RedisPassword: viper.GetString("redis-password"),
		OpTimeout:     viper.GetDuration("store-timeout"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	accounts, err := account.NewService(s, &account.Config{Secret: viper.GetString("secret")}, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	login, err := accounts.Login(ctx, &account.LoginParams{
		Email:    email,
		Password: viper.GetString("password"),
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to log in as %s: %w", email, err)
	}

	engine := playback.NewEngine(s, logger)
	tracker := presence.NewTracker(s, logger)

	return &participant{
		user:     login.User,
		token:    login.Token,
		rooms:    room.NewService(roomrepo.NewRepo(s, logger), engine, tracker, ytvideodata.New(nil), logger),
		accounts: accounts,
		engine:   engine,
		tracker:  tracker,
		logger:   logger,
		close:    closeStore,
	}, nil
}

func (p *participant) Close() error {
	if err := p.accounts.Logout(context.Background(), p.token); err != nil {
		p.logger.Warn("failed to log out", "error", err)
	}

	return p.close()
}
