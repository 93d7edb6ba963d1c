package controller

import (
	"net/http"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/room"
)

func (c *controller) getPlayback(w http.ResponseWriter, r *http.Request) {
	state, err := c.roomService.GetPlayback(r.Context(), &room.GetPlaybackParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		Viewer: c.getUserFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	// null until the first publish
	c.writeData(w, http.StatusOK, state)
}

type publishPlaybackRequest struct {
	CurrentTime         *float64 `json:"currentTime" validate:"required,gte=0"`
	IsPlaying           bool     `json:"isPlaying"`
	Volume              *float64 `json:"volume" validate:"required,gte=0,lte=1"`
	LastWriterTimestamp int64    `json:"lastWriterTimestamp" validate:"gte=0"`
}

type publishPlaybackResponse struct {
	State    domain.PlaybackState `json:"state"`
	Accepted bool                 `json:"accepted"`
}

func (c *controller) publishPlayback(w http.ResponseWriter, r *http.Request) {
	var req publishPlaybackRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	roomId := c.getRoomIdFromCtx(r.Context())
	resp, err := c.roomService.PublishPlayback(r.Context(), &room.PublishPlaybackParams{
		RoomId:              roomId,
		Writer:              c.getUserFromCtx(r.Context()),
		CurrentTime:         *req.CurrentTime,
		IsPlaying:           req.IsPlaying,
		Volume:              *req.Volume,
		LastWriterTimestamp: req.LastWriterTimestamp,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if resp.Accepted {
		c.pushPlayback(r.Context(), roomId, resp.State)
	}

	c.writeData(w, http.StatusOK, publishPlaybackResponse{
		State:    resp.State,
		Accepted: resp.Accepted,
	})
}

func (c *controller) heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.Heartbeat(r.Context(), &room.HeartbeatParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		User:   c.getUserFromCtx(r.Context()),
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *controller) activeViewers(w http.ResponseWriter, r *http.Request) {
	viewers, err := c.roomService.ActiveViewers(r.Context(), &room.ActiveViewersParams{
		RoomId: c.getRoomIdFromCtx(r.Context()),
		Viewer: c.getUserFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if viewers == nil {
		viewers = []domain.User{}
	}
	c.writeData(w, http.StatusOK, viewers)
}

func (c *controller) getMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := c.roomService.GetMessages(r.Context(), &room.GetMessagesParams{
		RoomId:  c.getRoomIdFromCtx(r.Context()),
		Viewer:  c.getUserFromCtx(r.Context()),
		SinceId: r.URL.Query().Get("since"),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	c.writeData(w, http.StatusOK, messages)
}

type postMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (c *controller) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if !c.readValidJSON(w, r, &req) {
		return
	}

	user := c.getUserFromCtx(r.Context())
	if !c.allowChat(user.Id) {
		c.writeError(w, r, errRateLimited)
		return
	}

	roomId := c.getRoomIdFromCtx(r.Context())
	message, err := c.roomService.PostMessage(r.Context(), &room.PostMessageParams{
		RoomId: roomId,
		Sender: user,
		Text:   req.Text,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.pushMessages(r.Context(), roomId, []domain.ChatMessage{message})
	c.writeData(w, http.StatusCreated, message)
}
