package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/watchparty/internal/repository/store"
)

func (r repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r repo) expire(ctx context.Context, c redis.Cmdable, key string) {
	if r.expireDuration > 0 {
		c.Expire(ctx, key, r.expireDuration)
	}
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func wrapErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}

	return store.Unavailable(err)
}

func (r repo) ttlMillis() int64 {
	return r.expireDuration.Milliseconds()
}

func flatten(doc store.Document) []any {
	args := make([]any, 0, len(doc)*2)
	for field, value := range doc {
		args = append(args, field, string(value))
	}

	return args
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
