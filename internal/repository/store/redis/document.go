package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sharetube/watchparty/internal/repository/store"
)

func (r repo) Get(ctx context.Context, key string) (store.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fields, err := r.rc.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, wrapErr(err))
	}

	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}

	doc := make(store.Document, len(fields))
	for field, value := range fields {
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("field %s of %s: %w", field, key, store.ErrMalformed)
		}

		doc[field] = json.RawMessage(value)
	}

	return doc, nil
}

func (r repo) Set(ctx context.Context, key string, doc store.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, key)
	if len(doc) > 0 {
		pipe.HSet(ctx, key, flatten(doc)...)
	}
	r.expire(ctx, pipe, key)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, wrapErr(err))
	}

	return nil
}

func (r repo) Create(ctx context.Context, key string, doc store.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := append([]any{r.ttlMillis()}, flatten(doc)...)
	created, err := r.hSetIfNotExists.Run(ctx, r.rc, []string{key}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, wrapErr(err))
	}

	if created == 0 {
		return store.ErrAlreadyExists
	}

	return nil
}

func (r repo) Merge(ctx context.Context, key string, doc store.Document) error {
	if len(doc) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key, flatten(doc)...)
	r.expire(ctx, pipe, key)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to merge %s: %w", key, wrapErr(err))
	}

	return nil
}

func (r repo) MergeIfNewer(ctx context.Context, key, orderField string, order int64, doc store.Document) (int64, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc = doc.Clone()
	delete(doc, store.RevisionField)
	doc[orderField] = json.RawMessage(fmt.Sprint(order))

	args := append([]any{orderField, order, r.ttlMillis()}, flatten(doc)...)
	res, err := r.hMergeIfNewerScript.Run(ctx, r.rc, []string{key}, args...).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to merge %s: %w", key, wrapErr(err))
	}

	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected script reply %v: %w", res, store.ErrUnavailable)
	}

	return res[1], res[0] == 1, nil
}

func (r repo) DeleteFields(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.rc.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to delete fields of %s: %w", key, wrapErr(err))
	}

	return nil
}

func (r repo) Delete(ctx context.Context, key string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.rc.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, wrapErr(err))
	}

	return nil
}

func (r repo) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	seen := make(map[string]struct{})
	iter := r.rc.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		seen[iter.Val()] = struct{}{}
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s*: %w", prefix, wrapErr(err))
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys, nil
}
