package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/internal/repository/store/inmemory"
	"github.com/sharetube/watchparty/internal/service/playback"
	"github.com/sharetube/watchparty/internal/service/presence"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/internal/session"
	"github.com/sharetube/watchparty/pkg/ytvideodata"
)

func newTestController(t *testing.T) (*session.Controller, *playback.Engine, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := inmemory.NewRepo()
	engine := playback.NewEngine(s, logger)
	tracker := presence.NewTracker(s, logger)
	rooms := room.NewService(roomrepo.NewRepo(s, logger), engine, tracker, ytvideodata.New(nil), logger)

	owner := domain.User{Id: "u1", Name: "Ann"}
	created, err := rooms.CreateRoom(context.Background(), &room.CreateRoomParams{Creator: owner, Name: "Cinema"})
	require.NoError(t, err)

	c := session.NewController(engine, tracker, rooms, logger, session.Config{}, &session.Params{
		Room:   created,
		User:   owner,
		Player: session.NewVirtualPlayer(nil),
	})
	t.Cleanup(c.Close)

	return c, engine, created.Id
}

func TestHandleCommand(t *testing.T) {
	c, engine, roomId := newTestController(t)
	ctx := context.Background()

	require.NoError(t, handleCommand(ctx, c, "/seek 30"))
	require.NoError(t, handleCommand(ctx, c, "/volume 0.25"))
	require.NoError(t, handleCommand(ctx, c, "/video sample3"))
	require.NoError(t, handleCommand(ctx, c, "hello there"))

	assert.Error(t, handleCommand(ctx, c, "/seek soon"))
	assert.Error(t, handleCommand(ctx, c, "/volume 3"))
	assert.Error(t, handleCommand(ctx, c, "/video"))

	state, err := engine.PollState(ctx, roomId)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "sample3", state.ActiveVideoId)

	messages, err := engine.PollMessages(ctx, roomId)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello there", messages[0].Text)
}

func TestReadCommandsStopsOnQuit(t *testing.T) {
	c, engine, roomId := newTestController(t)
	var out strings.Builder

	readCommands(context.Background(), strings.NewReader("first\n\n/quit\nnever sent\n"), &out, c)

	messages, err := engine.PollMessages(context.Background(), roomId)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Text)
	assert.Empty(t, out.String())
}

func TestStatusLine(t *testing.T) {
	line := statusLine(session.View{
		Local:   playback.LocalState{VideoId: "sample1", CurrentTime: 12.4, IsPlaying: true, Volume: 1},
		Viewers: []domain.User{{Id: "u1", Name: "Ann"}, {Id: "u2", Email: "bo@example.com"}},
	})

	assert.Equal(t, "[sample1] playing 12s vol 1.00 | watching: Ann, bo@example.com", line)
}
