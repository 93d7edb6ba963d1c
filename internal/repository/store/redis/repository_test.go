package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/repository/store/storetest"
)

func newTestRepo(t *testing.T, expire time.Duration) (*repo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, &Config{ExpireDuration: expire}), mr
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		r, _ := newTestRepo(t, 0)
		return r
	})
}

func TestWritesRefreshExpiry(t *testing.T) {
	r, mr := newTestRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", store.Document{"a": []byte("1")}))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	_, err := r.Append(ctx, "l", []byte("1"), 10)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("l"))

	_, _, err = r.MergeIfNewer(ctx, "p", "ts", 1, store.Document{"v": []byte("1")})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("p"))

	mr.FastForward(2 * time.Minute)
	_, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMalformedField(t *testing.T) {
	r, mr := newTestRepo(t, 0)
	mr.HSet("k", "a", "not json")

	_, err := r.Get(context.Background(), "k")
	assert.ErrorIs(t, err, store.ErrMalformed)
}

func TestUnavailable(t *testing.T) {
	r, mr := newTestRepo(t, 0)
	mr.Close()

	_, err := r.Get(context.Background(), "k")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
