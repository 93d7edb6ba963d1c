package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PlaybackPublishes.WithLabelValues("accepted"))
	PlaybackPublishes.WithLabelValues("accepted").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PlaybackPublishes.WithLabelValues("accepted")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Heartbeats.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "watchparty_presence_heartbeats_total")
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	assert.False(t, timer.start.IsZero())
	assert.GreaterOrEqual(t, timer.Duration().Nanoseconds(), int64(0))
}
