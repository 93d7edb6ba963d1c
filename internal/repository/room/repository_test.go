package room

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/repository/store/inmemory"
)

var (
	alice = domain.User{Id: "u-alice", Name: "Alice", Role: domain.RoleUser}
	bob   = domain.User{Id: "u-bob", Name: "Bob", Role: domain.RoleUser}
	admin = domain.User{Id: "u-admin", Name: "Admin", Role: domain.RoleAdmin}
	mod   = domain.User{Id: "u-mod", Name: "Mod", Role: domain.RoleModerator}
)

type fixedGenerator struct {
	values []string
	calls  int
}

func (g *fixedGenerator) GenerateRandomString(int) string {
	v := g.values[min(g.calls, len(g.values)-1)]
	g.calls++
	return v
}

func newTestRepo(t *testing.T) (*repo, store.Store) {
	t.Helper()
	s := inmemory.NewRepo()
	return NewRepo(s, slog.New(slog.NewTextHandler(io.Discard, nil))), s
}

func TestCreatePublicRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d+-[0-9a-z]{7}$`), room.Id)
	assert.False(t, room.IsPrivate)
	assert.Empty(t, room.InviteCode)
	assert.Equal(t, domain.DefaultVideoId, room.ActiveVideoId)
	assert.Equal(t, domain.Members{{Id: alice.Id, Name: "Alice", Role: domain.MemberRoleHost}}, room.Users)

	got, err := r.GetById(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, room.Id, got.Id)
	assert.True(t, room.CreatedAt.Equal(got.CreatedAt))
	assert.Empty(t, got.InviteCode)
}

func TestCreatePrivateRoomInviteRoundTrip(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Movie Night", Creator: alice, IsPrivate: true})
	require.NoError(t, err)
	assert.True(t, room.IsPrivate)
	assert.Len(t, room.InviteCode, InviteCodeLength)

	got, err := r.GetByInviteCode(ctx, room.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, room.Id, got.Id)
}

func TestGetByInviteCodeIsCaseInsensitive(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Id: "demo-room-1", Name: "Demo", Creator: alice, IsPrivate: true, InviteCode: "DEMOROOM"})
	require.NoError(t, err)

	got, err := r.GetByInviteCode(ctx, "demoroom")
	require.NoError(t, err)
	assert.Equal(t, room.Id, got.Id)

	_, err = r.GetByInviteCode(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrInviteCodeNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.GetByInviteCode(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRejectsInviteCodeInUse(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := r.Create(ctx, &CreateParams{Name: "First", Creator: alice, IsPrivate: true, InviteCode: "MOVIES01"})
	require.NoError(t, err)

	_, err = r.Create(ctx, &CreateParams{Name: "Second", Creator: bob, IsPrivate: true, InviteCode: "movies01"})
	assert.ErrorIs(t, err, ErrInviteCodeTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// codes of rooms that went public still count
	_, err = r.SetPrivacy(ctx, &SetPrivacyParams{RoomId: first.Id, Actor: alice, IsPrivate: false})
	require.NoError(t, err)
	_, err = r.Create(ctx, &CreateParams{Name: "Third", Creator: bob, IsPrivate: true, InviteCode: "MOVIES01"})
	assert.ErrorIs(t, err, ErrInviteCodeTaken)

	// recreating the same room reports the id, not the code
	_, err = r.Create(ctx, &CreateParams{Id: first.Id, Name: "First", Creator: alice, IsPrivate: true, InviteCode: "MOVIES01"})
	assert.ErrorIs(t, err, ErrRoomIdTaken)

	got, err := r.GetByInviteCode(ctx, "MOVIES01")
	require.NoError(t, err)
	assert.Equal(t, first.Id, got.Id)
}

func TestInviteCodeCollisionRegeneratesOnce(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, &CreateParams{Name: "First", Creator: alice, IsPrivate: true, InviteCode: "AAAAAAAA"})
	require.NoError(t, err)

	gen := &fixedGenerator{values: []string{"AAAAAAAA", "BBBBBBBB"}}
	r.inviteCodes = gen
	room, err := r.Create(ctx, &CreateParams{Name: "Second", Creator: bob, IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", room.InviteCode)
	assert.Equal(t, 2, gen.calls)

	r.inviteCodes = &fixedGenerator{values: []string{"AAAAAAAA"}}
	_, err = r.Create(ctx, &CreateParams{Name: "Third", Creator: bob, IsPrivate: true})
	assert.ErrorIs(t, err, ErrInviteCodeTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRoomIdCollision(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }

	gen := &fixedGenerator{values: []string{"aaaaaaa", "aaaaaaa", "bbbbbbb"}}
	r.idSuffixes = gen

	first, err := r.Create(ctx, &CreateParams{Name: "A", Creator: alice})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-aaaaaaa", first.Id)

	second, err := r.Create(ctx, &CreateParams{Name: "B", Creator: alice})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-bbbbbbb", second.Id)

	_, err = r.Create(ctx, &CreateParams{Id: first.Id, Name: "C", Creator: alice})
	assert.ErrorIs(t, err, ErrRoomIdTaken)
}

func TestAddUserIsIdempotent(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	for _i := 0; _i < 2; _i++ {
		_, err := r.AddUser(ctx, &AddUserParams{RoomId: room.Id, User: bob})
		require.NoError(t, err)
	}

	got, err := r.GetById(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, got.Users, 2)
	assert.Equal(t, domain.Member{Id: bob.Id, Name: "Bob", Role: domain.MemberRoleViewer}, got.Users[1])

	_, err = r.AddUser(ctx, &AddUserParams{RoomId: "missing", User: bob})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAddUserKeepsConcurrentFields(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	// A concurrent writer changes the video between our read and write.
	require.NoError(t, s.Merge(ctx, store.RoomKey(room.Id), store.Document{"activeVideoId": []byte(`"sample2"`)}))

	_, err = r.AddUser(ctx, &AddUserParams{RoomId: room.Id, User: bob})
	require.NoError(t, err)

	got, err := r.GetById(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, "sample2", got.ActiveVideoId)
}

func TestSetPrivacy(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	_, err = r.SetPrivacy(ctx, &SetPrivacyParams{RoomId: room.Id, Actor: bob, IsPrivate: true})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	private, err := r.SetPrivacy(ctx, &SetPrivacyParams{RoomId: room.Id, Actor: alice, IsPrivate: true})
	require.NoError(t, err)
	assert.True(t, private.IsPrivate)
	assert.Len(t, private.InviteCode, InviteCodeLength)

	public, err := r.SetPrivacy(ctx, &SetPrivacyParams{RoomId: room.Id, Actor: admin, IsPrivate: false})
	require.NoError(t, err)
	assert.False(t, public.IsPrivate)
	assert.Equal(t, private.InviteCode, public.InviteCode)

	again, err := r.SetPrivacy(ctx, &SetPrivacyParams{RoomId: room.Id, Actor: alice, IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, private.InviteCode, again.InviteCode)

	stored, err := r.GetById(ctx, room.Id)
	require.NoError(t, err)
	assert.True(t, stored.IsPrivate)
	assert.Equal(t, private.InviteCode, stored.InviteCode)
}

func TestChangeVideo(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)
	_, err = r.AddUser(ctx, &AddUserParams{RoomId: room.Id, User: bob})
	require.NoError(t, err)

	_, err = r.ChangeVideo(ctx, &ChangeVideoParams{RoomId: room.Id, Actor: bob, VideoId: "sample2"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = r.ChangeVideo(ctx, &ChangeVideoParams{RoomId: room.Id, Actor: alice, VideoId: "nope"})
	assert.ErrorIs(t, err, domain.ErrVideoNotFound)

	updated, err := r.ChangeVideo(ctx, &ChangeVideoParams{RoomId: room.Id, Actor: mod, VideoId: "sample3"})
	require.NoError(t, err)
	assert.Equal(t, "sample3", updated.ActiveVideoId)
}

func TestAddCustomVideo(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)

	_, err = r.AddCustomVideo(ctx, &AddCustomVideoParams{RoomId: room.Id, Actor: bob, Video: domain.Video{Name: "x"}})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	video, err := r.AddCustomVideo(ctx, &AddCustomVideoParams{
		RoomId: room.Id,
		Actor:  alice,
		Video:  domain.Video{Name: "Clip", Src: "https://example.com/clip.mp4", Kind: domain.VideoKindDirect},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, video.Id)

	_, err = r.ChangeVideo(ctx, &ChangeVideoParams{RoomId: room.Id, Actor: alice, VideoId: video.Id})
	require.NoError(t, err)

	got, err := r.GetById(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, []domain.Video{video}, got.CustomVideos)

	_, err = r.AddCustomVideo(ctx, &AddCustomVideoParams{RoomId: room.Id, Actor: alice, Video: video})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDelete(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	room, err := r.Create(ctx, &CreateParams{Name: "Lobby", Creator: alice})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.PlaybackKey(room.Id), store.Document{"isPlaying": []byte("true")}))
	_, err = s.Append(ctx, store.MessagesKey(room.Id), []byte(`{}`), 0)
	require.NoError(t, err)

	err = r.Delete(ctx, &DeleteParams{RoomId: room.Id, Actor: bob})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, r.Delete(ctx, &DeleteParams{RoomId: room.Id, Actor: admin}))

	_, err = r.GetById(ctx, room.Id)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	keys, err := s.ListKeysWithPrefix(ctx, store.RoomKey(room.Id))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestListVisibility(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	public, err := r.Create(ctx, &CreateParams{Name: "Public", Creator: alice})
	require.NoError(t, err)
	private, err := r.Create(ctx, &CreateParams{Name: "Private", Creator: alice, IsPrivate: true})
	require.NoError(t, err)

	ids := func(rooms []domain.Room) []string {
		out := make([]string, 0, len(rooms))
		for _, room := range rooms {
			out = append(out, room.Id)
		}
		return out
	}

	rooms, err := r.List(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{public.Id}, ids(rooms))

	rooms, err = r.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{private.Id, public.Id}, ids(rooms))

	rooms, err = r.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestListSkipsMalformedRooms(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.Create(ctx, &CreateParams{Name: "Good", Creator: alice})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.RoomKey("broken"), store.Document{"users": []byte(`"nope"`)}))

	rooms, err := r.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}
