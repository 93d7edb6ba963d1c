package controller

import (
	"net/http"
	"time"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/account"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/rest"
)

type registerRequest struct {
	Name     string `json:"name" validate:"max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (c *controller) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	user, err := c.accountService.Register(r.Context(), &account.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (c *controller) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	resp, err := c.accountService.Login(r.Context(), &account.LoginParams{Email: req.Email, Password: req.Password})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusCreated, loginResponse{
		Token:     resp.Token,
		User:      resp.User,
		ExpiresAt: resp.ExpiresAt,
	})
}

func (c *controller) logout(w http.ResponseWriter, r *http.Request) {
	if err := c.accountService.Logout(r.Context(), c.getTokenFromCtx(r.Context())); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) me(w http.ResponseWriter, r *http.Request) {
	c.writeData(w, http.StatusOK, c.getUserFromCtx(r.Context()))
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=64"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

func (c *controller) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	user, err := c.accountService.UpdateProfile(r.Context(), &account.UpdateProfileParams{
		UserId: c.getUserFromCtx(r.Context()).Id,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, user)
}

func (c *controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context(), c.getUserFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if rooms == nil {
		rooms = []domain.Room{}
	}
	c.writeData(w, http.StatusOK, rooms)
}

type createRoomRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	IsPrivate bool   `json:"isPrivate"`
	VideoId   string `json:"videoId" validate:"max=128"`
}

func (c *controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	created, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Creator:   c.getUserFromCtx(r.Context()),
		Name:      req.Name,
		IsPrivate: req.IsPrivate,
		VideoId:   req.VideoId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusCreated, created)
}

type joinRoomByCodeRequest struct {
	InviteCode string `json:"inviteCode" validate:"required"`
}

func (c *controller) joinRoomByCode(w http.ResponseWriter, r *http.Request) {
	var req joinRoomByCodeRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	joined, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		User:       c.getUserFromCtx(r.Context()),
		InviteCode: req.InviteCode,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, joined)
}

type joinRoomRequest struct {
	InviteCode string `json:"inviteCode"`
}

func (c *controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if r.ContentLength != 0 {
		if err := rest.ReadJSON(r, &req); err != nil {
			rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
			return
		}
	}

	joined, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		User:       c.getUserFromCtx(r.Context()),
		RoomId:     c.getRoomIdFromCtx(r.Context()),
		InviteCode: req.InviteCode,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, joined)
}

func (c *controller) getRoom(w http.ResponseWriter, r *http.Request) {
	found, err := c.roomService.GetRoom(r.Context(), &room.GetRoomParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		Viewer: c.getUserFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, found)
}

func (c *controller) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.DeleteRoom(r.Context(), &room.DeleteRoomParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		Actor:  c.getUserFromCtx(r.Context()),
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setPrivacyRequest struct {
	IsPrivate *bool `json:"isPrivate" validate:"required"`
}

func (c *controller) setPrivacy(w http.ResponseWriter, r *http.Request) {
	var req setPrivacyRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	updated, err := c.roomService.SetPrivacy(r.Context(), &room.SetPrivacyParams{
		RoomId:    c.getRoomIdFromCtx(r.Context()),
		Actor:     c.getUserFromCtx(r.Context()),
		IsPrivate: *req.IsPrivate,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, updated)
}

type changeVideoRequest struct {
	VideoId string `json:"videoId" validate:"required,max=128"`
}

func (c *controller) changeVideo(w http.ResponseWriter, r *http.Request) {
	var req changeVideoRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	updated, err := c.roomService.ChangeVideo(r.Context(), &room.ChangeVideoParams{
		RoomId:  c.getRoomIdFromCtx(r.Context()),
		Actor:   c.getUserFromCtx(r.Context()),
		VideoId: req.VideoId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, updated)
}

type addCustomVideoRequest struct {
	Name string `json:"name" validate:"max=200"`
	Src  string `json:"src" validate:"required,max=2048"`
	Kind string `json:"kind" validate:"omitempty,oneof=direct youtube"`
}

func (c *controller) addCustomVideo(w http.ResponseWriter, r *http.Request) {
	var req addCustomVideoRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	video, err := c.roomService.AddCustomVideo(r.Context(), &room.AddCustomVideoParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		Actor:  c.getUserFromCtx(r.Context()),
		Name:   req.Name,
		Src:    req.Src,
		Kind:   domain.VideoKind(req.Kind),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeData(w, http.StatusCreated, video)
}
