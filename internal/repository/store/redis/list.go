package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/watchparty/internal/repository/store"
)

func (r repo) Append(ctx context.Context, key string, value json.RawMessage, limit int) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, key, string(value))
	if limit > 0 {
		pipe.LTrim(ctx, key, int64(-limit), -1)
	}
	r.expire(ctx, pipe, key)
	length := pipe.LLen(ctx, key)

	if err := r.executePipe(ctx, pipe); err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", key, wrapErr(err))
	}

	return int(length.Val()), nil
}

func (r repo) Range(ctx context.Context, key string) ([]json.RawMessage, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	values, err := r.rc.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to range %s: %w", key, wrapErr(err))
	}

	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("entry of %s: %w", key, store.ErrMalformed)
		}
		out = append(out, json.RawMessage(v))
	}

	return out, nil
}
