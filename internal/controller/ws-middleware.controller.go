package controller

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

// wsFrameCtxMw tags each client frame for the logs. room_id and user_id are
// already on the context from the upgrade request.
func (c *controller) wsFrameCtxMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			return next(ctx, conn, payload)
		}
	}
}

// wsObserveMw records how each frame was handled. Rejected frames are
// logged with the status their ERROR reply carries.
func (c *controller) wsObserveMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			c.logger.DebugContext(ctx, "websocket frame received", "payload", payload)

			timer := metrics.NewTimer()
			err := next(ctx, conn, payload)

			outcome := "ok"
			if err != nil {
				outcome = "rejected"
				if errorStatus(err) >= 500 {
					outcome = "error"
				}
			}
			timer.ObserveDuration(metrics.PushMessageDuration.WithLabelValues(wsrouter.GetMessageTypeFromCtx(ctx), outcome))

			if err != nil {
				c.logger.InfoContext(ctx, "websocket frame failed", "status", errorStatus(err), "duration", timer.Duration())
			} else {
				c.logger.DebugContext(ctx, "websocket frame handled", "duration", timer.Duration())
			}

			return err
		}
	}
}
