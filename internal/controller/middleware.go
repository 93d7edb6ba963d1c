package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/rest"
)

func (c *controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

func (c *controller) metricsMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)))
	})
}

// authMw resolves the bearer token to the current user. A missing or
// invalid token is answered with 401.
func (c *controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := c.getToken(r)
		if token == "" {
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "missing bearer token"})
			return
		}

		user, err := c.accountService.GetCurrentUser(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
				c.logger.DebugContext(r.Context(), "rejected token", "error", err)
				rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
				return
			}

			c.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		ctx = context.WithValue(ctx, tokenCtxKey, token)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", user.Id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *controller) roomIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomId := c.getRoomId(r)
		ctx := context.WithValue(r.Context(), roomIdCtxKey, roomId)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
