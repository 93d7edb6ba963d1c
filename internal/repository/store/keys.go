package store

import "strings"

const (
	RoomPrefix   = "room:"
	UserPrefix   = "user:"
	UserIndexKey = "userIndex"
)

func RoomKey(roomId string) string {
	return RoomPrefix + roomId
}

func PlaybackKey(roomId string) string {
	return RoomPrefix + roomId + ":playback"
}

func PresenceKey(roomId string) string {
	return RoomPrefix + roomId + ":presence"
}

func MessagesKey(roomId string) string {
	return RoomPrefix + roomId + ":messages"
}

func UserKey(userId string) string {
	return UserPrefix + userId
}

// EmailKey reserves an email address for one user.
func EmailKey(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}

func SessionKey(tokenId string) string {
	return "session:" + tokenId
}

// RoomIdFromKey extracts the room id from a room record key, rejecting the
// per-room sub-keys (playback, presence, messages).
func RoomIdFromKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, RoomPrefix)
	if !ok || id == "" || strings.Contains(id, ":") {
		return "", false
	}

	return id, true
}
