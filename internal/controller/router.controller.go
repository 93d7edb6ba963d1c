package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sharetube/watchparty/internal/metrics"
)

func (c *controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(c.metricsMw)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", c.register)
		r.Post("/sessions", c.login)

		r.Group(func(r chi.Router) {
			r.Use(c.authMw)

			r.Delete("/sessions", c.logout)
			r.Get("/me", c.me)
			r.Patch("/me", c.updateProfile)

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", c.listRooms)
				r.Post("/", c.createRoom)
				r.Post("/join", c.joinRoomByCode)

				r.Route("/{room-id}", func(r chi.Router) {
					r.Use(c.roomIdMw)

					r.Get("/", c.getRoom)
					r.Delete("/", c.deleteRoom)
					r.Post("/join", c.joinRoom)
					r.Put("/privacy", c.setPrivacy)
					r.Put("/video", c.changeVideo)
					r.Post("/videos", c.addCustomVideo)
					r.Get("/playback", c.getPlayback)
					r.Put("/playback", c.publishPlayback)
					r.Post("/heartbeat", c.heartbeat)
					r.Get("/viewers", c.activeViewers)
					r.Get("/messages", c.getMessages)
					r.Post("/messages", c.postMessage)
				})
			})
		})
	})

	if c.cfg.PushTransport {
		r.Route("/ws/rooms/{room-id}", func(r chi.Router) {
			r.Use(c.authMw)
			r.Use(c.roomIdMw)
			r.Get("/", c.serveRoomWS)
		})
	}

	return r
}
