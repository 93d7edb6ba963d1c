package room

import "github.com/sharetube/watchparty/internal/domain"

type CreateParams struct {
	// Id and InviteCode are generated when empty.
	Id            string
	Name          string
	Creator       domain.User
	IsPrivate     bool
	InviteCode    string
	ActiveVideoId string
}

type AddUserParams struct {
	RoomId string
	User   domain.User
}

type SetPrivacyParams struct {
	RoomId    string
	Actor     domain.User
	IsPrivate bool
}

type ChangeVideoParams struct {
	RoomId  string
	Actor   domain.User
	VideoId string
}

type AddCustomVideoParams struct {
	RoomId string
	Actor  domain.User
	Video  domain.Video
}

type DeleteParams struct {
	RoomId string
	Actor  domain.User
}
