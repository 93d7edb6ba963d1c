// Package inmemory is a process-local store.Store, used by tests and
// single-process demos.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/store"
)

type repo struct {
	mu    sync.RWMutex
	docs  map[string]store.Document
	lists map[string][]json.RawMessage
}

func NewRepo() *repo {
	return &repo{
		docs:  make(map[string]store.Document),
		lists: make(map[string][]json.RawMessage),
	}
}

func (r *repo) Get(ctx context.Context, key string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	return doc.Clone(), nil
}

func (r *repo) Set(ctx context.Context, key string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(doc) == 0 {
		delete(r.docs, key)
		return nil
	}
	r.docs[key] = doc.Clone()

	return nil
}

func (r *repo) Create(ctx context.Context, key string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[key]; ok {
		return store.ErrAlreadyExists
	}
	r.docs[key] = doc.Clone()

	return nil
}

func (r *repo) Merge(ctx context.Context, key string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mergeLocked(key, doc)

	return nil
}

func (r *repo) mergeLocked(key string, doc store.Document) {
	if len(doc) == 0 {
		return
	}

	cur, ok := r.docs[key]
	if !ok {
		cur = make(store.Document, len(doc))
		r.docs[key] = cur
	}

	for field, value := range doc {
		cur[field] = value
	}
}

func (r *repo) MergeIfNewer(ctx context.Context, key, orderField string, order int64, doc store.Document) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.docs[key]
	revision, err := intField(cur, store.RevisionField)
	if err != nil {
		return 0, false, err
	}

	if raw, ok := cur[orderField]; ok {
		var stored int64
		if err := json.Unmarshal(raw, &stored); err != nil {
			return 0, false, fmt.Errorf("field %s of %s: %w", orderField, key, store.ErrMalformed)
		}

		if stored > order {
			return revision, false, nil
		}
	}

	doc = doc.Clone()
	revision++
	doc[orderField] = json.RawMessage(fmt.Sprint(order))
	doc[store.RevisionField] = json.RawMessage(fmt.Sprint(revision))
	r.mergeLocked(key, doc)

	return revision, true, nil
}

func intField(doc store.Document, field string) (int64, error) {
	raw, ok := doc[field]
	if !ok {
		return 0, nil
	}

	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("field %s: %w", field, store.ErrMalformed)
	}

	return v, nil
}

func (r *repo) DeleteFields(ctx context.Context, key string, fields ...string) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[key]
	if !ok {
		return nil
	}

	for _, f := range fields {
		delete(cur, f)
	}

	if len(cur) == 0 {
		delete(r.docs, key)
	}

	return nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.docs, key)
	delete(r.lists, key)

	return nil
}

func (r *repo) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0)
	for k := range r.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	for k := range r.lists {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	return slices.Compact(keys), nil
}

func (r *repo) Append(ctx context.Context, key string, value json.RawMessage, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.Unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.lists[key], value)
	if limit > 0 && len(list) > limit {
		list = slices.Clone(list[len(list)-limit:])
	}
	r.lists[key] = list

	return len(list), nil
}

func (r *repo) Range(ctx context.Context, key string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.lists[key]), nil
}
