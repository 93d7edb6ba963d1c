package controller

import (
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(c.handleWSError)
	mux.Use(c.wsFrameCtxMw(), c.wsObserveMw())

	wsrouter.AddHandler(mux, "PUBLISH_STATE", c.handlePublishState)
	wsrouter.AddHandler(mux, "POST_MESSAGE", c.handlePostMessage)
	wsrouter.AddHandler(mux, "HEARTBEAT", c.handleHeartbeat)

	return mux
}
