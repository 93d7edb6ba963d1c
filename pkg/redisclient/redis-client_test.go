package redisclient

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &Config{Host: mr.Host(), Port: port}
	rc, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, rc.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.DB(0).Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.Close()
	_, err = NewRedisClient(context.Background(), &Config{Host: cfg.Host, Port: port, PingTimeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "failed to ping redis")
}
