package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembersAddIsIdempotent(t *testing.T) {
	var members Members

	members, changed := members.Add(Member{Id: "u1", Name: "Ann", Role: MemberRoleHost})
	assert.True(t, changed)

	members, changed = members.Add(Member{Id: "u1", Name: "Ann again", Role: MemberRoleViewer})
	assert.False(t, changed)
	require.Len(t, members, 1)
	assert.Equal(t, "Ann", members[0].Name)

	_, _, err := members.GetById("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomValidate(t *testing.T) {
	room := Room{
		Id:        "r1",
		CreatedBy: "u1",
		Users:     Members{{Id: "u1", Role: MemberRoleHost}, {Id: "u2", Role: MemberRoleViewer}},
	}
	assert.NoError(t, room.Validate())

	private := room
	private.IsPrivate = true
	assert.ErrorIs(t, private.Validate(), ErrInvalidInput)

	private.InviteCode = "ABCD1234"
	assert.NoError(t, private.Validate())

	twoHosts := room
	twoHosts.Users = Members{{Id: "u1", Role: MemberRoleHost}, {Id: "u2", Role: MemberRoleHost}}
	assert.Error(t, twoHosts.Validate())

	wrongHost := room
	wrongHost.Users = Members{{Id: "u2", Role: MemberRoleHost}}
	assert.Error(t, wrongHost.Validate())
}

func TestRoomVisibility(t *testing.T) {
	room := Room{Id: "r1", CreatedBy: "owner", IsPrivate: true, InviteCode: "AbCd1234"}

	assert.True(t, room.VisibleTo(User{Id: "owner"}))
	assert.True(t, room.VisibleTo(User{Id: "boss", Role: RoleAdmin}))
	assert.False(t, room.VisibleTo(User{Id: "other", Role: RoleUser}))
	assert.False(t, room.VisibleTo(User{Id: "mod", Role: RoleModerator}))

	assert.True(t, room.MatchesInviteCode("abcd1234"))
	assert.False(t, room.MatchesInviteCode(""))
	assert.False(t, Room{}.MatchesInviteCode(""))
}

func TestResolveVideo(t *testing.T) {
	custom := []Video{{Id: "c1", Name: "Clip", Src: "https://example.com/clip.mp4", Kind: VideoKindDirect}}

	v, err := ResolveVideo("sample2", custom)
	require.NoError(t, err)
	assert.Equal(t, "Sample Video 2", v.Name)

	v, err = ResolveVideo("c1", custom)
	require.NoError(t, err)
	assert.Equal(t, "Clip", v.Name)

	_, err = ResolveVideo("missing", custom)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaybackStateEstimatedTime(t *testing.T) {
	t0 := time.UnixMilli(1_700_000_000_000)

	playing := PlaybackState{CurrentTime: 30, IsPlaying: true, LastWriterTimestamp: t0.UnixMilli()}
	assert.InDelta(t, 32.5, playing.EstimatedTime(t0.Add(2500*time.Millisecond)), 1e-9)

	// writer clock ahead of the reader
	assert.InDelta(t, 30, playing.EstimatedTime(t0.Add(-3*time.Second)), 1e-9)

	paused := playing
	paused.IsPlaying = false
	assert.InDelta(t, 30, paused.EstimatedTime(t0.Add(time.Minute)), 1e-9)
}

func TestPresenceEntryIsActive(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	window := 10 * time.Second

	assert.True(t, PresenceEntry{LastSeen: now.Add(-9 * time.Second).UnixMilli()}.IsActive(now, window))
	assert.False(t, PresenceEntry{LastSeen: now.Add(-10 * time.Second).UnixMilli()}.IsActive(now, window))
	assert.False(t, PresenceEntry{LastSeen: now.Add(-11 * time.Second).UnixMilli()}.IsActive(now, window))
}

func TestSortMessagesKeepsInsertionOrderOnTies(t *testing.T) {
	messages := []ChatMessage{
		{Id: "b", Timestamp: 2},
		{Id: "a1", Timestamp: 1},
		{Id: "a2", Timestamp: 1},
	}

	SortMessages(messages)

	assert.Equal(t, "a1", messages[0].Id)
	assert.Equal(t, "a2", messages[1].Id)
	assert.Equal(t, "b", messages[2].Id)
}
