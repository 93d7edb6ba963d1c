package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/service/account"
	"github.com/sharetube/watchparty/pkg/rest"
)

const (
	roomIdParam  = "room-id"
	bearerPrefix = "Bearer "
)

var idCounter atomic.Uint64

func (c *controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(idCounter.Add(1), 36)
}

func (c *controller) getRoomId(r *http.Request) string {
	return chi.URLParam(r, roomIdParam)
}

// getToken reads the bearer token. Websocket clients that cannot set headers
// pass it as the token query parameter.
func (c *controller) getToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}

	return r.URL.Query().Get("token")
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (c *controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}

func (c *controller) writeData(w http.ResponseWriter, status int, data any) {
	rest.WriteJSON(w, status, rest.Envelope{"data": data})
}

// readValidJSON decodes the body into dst and runs the struct validator. It
// writes the error response itself and reports whether the handler may go on.
func (c *controller) readValidJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.DebugContext(r.Context(), "invalid request", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}
