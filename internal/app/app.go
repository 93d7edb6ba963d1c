package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sharetube/watchparty/internal/controller"
	connrepo "github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/service/account"
	"github.com/sharetube/watchparty/internal/service/playback"
	"github.com/sharetube/watchparty/internal/service/presence"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

const shutdownTimeout = 30 * time.Second

func NewLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type server struct {
	handler     http.Handler
	rooms       iSweeper
	sweepWindow time.Duration
	sweepEvery  time.Duration
}

type iSweeper interface {
	SweepPresence(ctx context.Context, olderThan time.Duration) (int, error)
}

// build wires the services on top of s.
func build(ctx context.Context, cfg *AppConfig, s store.Store, logger *slog.Logger) (*server, error) {
	roomRepo := roomrepo.NewRepo(s, logger)
	engine := playback.NewEngine(s, logger, playback.WithHistoryLimit(cfg.ChatHistoryLimit))
	tracker := presence.NewTracker(s, logger, presence.WithWindow(cfg.PresenceWindow))
	roomService := room.NewService(roomRepo, engine, tracker, ytvideodata.New(nil), logger)

	accountService, err := account.NewService(s, &account.Config{
		Secret:   cfg.Secret,
		TokenTTL: cfg.TokenTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	if cfg.SeedDemo {
		if err := seedDemo(ctx, accountService, roomRepo, logger); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	c := controller.NewController(roomService, accountService, connrepo.NewRepo(logger), logger, &controller.Config{
		PushTransport: cfg.PushTransport,
		PushInterval:  cfg.ChatInterval,
	})

	return &server{
		handler:     c.GetMux(),
		rooms:       roomService,
		sweepWindow: cfg.PresenceWindow,
		sweepEvery:  cfg.PresenceSweepInterval,
	}, nil
}

// sweepPresence drops stale presence entries of every room until ctx is done.
func (s *server) sweepPresence(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.rooms.SweepPresence(ctx, s.sweepWindow)
			if err != nil {
				logger.WarnContext(ctx, "presence sweep incomplete", "error", err)
			}
			if removed > 0 {
				logger.DebugContext(ctx, "presence swept", "removed", removed)
			}
		}
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	s, closeStore, err := OpenStore(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	srv, err := build(ctx, cfg, s, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(ctx, "starting server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		srv.sweepPresence(ctx, logger)
		return nil
	})

	return g.Wait()
}
