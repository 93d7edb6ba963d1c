package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/internal/session"
)

var joinCmd = &cobra.Command{
	Use:   "join [ROOM_ID]",
	Short: "Join a room and stay in sync until interrupted",
	Long: `Join a room by id or invite code and keep a virtual player in sync.

Lines typed on stdin are sent as chat messages, except for these commands:
  /play          toggle play and pause
  /seek SECONDS  jump to a position
  /volume LEVEL  set the volume, 0 to 1
  /video ID      switch the room video (owner and moderators only)
  /quit          leave`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().String("invite-code", "", "Invite code of a private room")
	joinCmd.Flags().Duration("sync-interval", session.DefaultConfig().SyncInterval, "Playback poll interval")
	joinCmd.Flags().Duration("chat-interval", session.DefaultConfig().ChatInterval, "Chat poll interval")
}

func runJoin(cmd *cobra.Command, args []string) error {
	inviteCode, _ := cmd.Flags().GetString("invite-code")
	syncInterval, _ := cmd.Flags().GetDuration("sync-interval")
	chatInterval, _ := cmd.Flags().GetDuration("chat-interval")

	var roomId string
	if len(args) > 0 {
		roomId = args[0]
	}
	if roomId == "" && inviteCode == "" {
		return errors.New("either a room id or --invite-code is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newParticipant(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	joined, err := p.rooms.JoinRoom(ctx, &room.JoinRoomParams{User: p.user, RoomId: roomId, InviteCode: inviteCode})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "joined %q (%s) as %s\n", joined.Name, joined.Id, p.user.DisplayName())

	controller := session.NewController(p.engine, p.tracker, p.rooms, p.logger, session.Config{
		SyncInterval: syncInterval,
		ChatInterval: chatInterval,
	}, &session.Params{
		Room:   joined,
		User:   p.user,
		Player: session.NewVirtualPlayer(nil),
		OnMessages: func(messages []domain.ChatMessage) {
			for _, m := range messages {
				fmt.Fprintf(out, "%s  %s: %s\n", time.UnixMilli(m.Timestamp).Format(time.Kitchen), m.UserName, m.Text)
			}
		},
	})
	defer controller.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(ctx)
	})
	g.Go(func() error {
		render(ctx, out, controller, syncInterval)
		return nil
	})
	go func() {
		// Stdin reads cannot be interrupted, so this goroutine is not part of
		// the group; it ends the session on /quit or EOF.
		readCommands(ctx, cmd.InOrStdin(), out, controller)
		controller.Close()
	}()

	return g.Wait()
}

func render(ctx context.Context, out io.Writer, c *session.Controller, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			line := statusLine(c.View())
			if line != last {
				fmt.Fprintln(out, line)
				last = line
			}
		}
	}
}

func statusLine(v session.View) string {
	state := "paused"
	if v.Local.IsPlaying {
		state = "playing"
	}

	names := make([]string, 0, len(v.Viewers))
	for _, u := range v.Viewers {
		names = append(names, u.DisplayName())
	}

	return fmt.Sprintf("[%s] %s %.0fs vol %.2f | watching: %s",
		v.Local.VideoId, state, v.Local.CurrentTime, v.Local.Volume, strings.Join(names, ", "))
}

func readCommands(ctx context.Context, in io.Reader, out io.Writer, c *session.Controller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		if err := handleCommand(ctx, c, line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func handleCommand(ctx context.Context, c *session.Controller, line string) error {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/play":
		return c.OnLocalPlayPause(ctx)
	case "/seek":
		seconds, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid position %q", arg)
		}
		return c.OnLocalSeek(ctx, seconds)
	case "/volume":
		volume, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q", arg)
		}
		return c.OnLocalVolume(ctx, volume)
	case "/video":
		if arg == "" {
			return errors.New("video id is required")
		}
		return c.OnVideoChange(ctx, arg)
	default:
		_, err := c.SendMessage(ctx, line)
		return err
	}
}
