// Package bolt implements store.Store in a single bbolt file so a room can
// survive restarts without a Redis server. Key expiry is not supported.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sharetube/watchparty/internal/repository/store"
)

var (
	bucketRecords = []byte("records")
	bucketLists   = []byte("lists")
)

type repo struct {
	db *bolt.DB
}

func NewRepo(path string) (*repo, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketLists} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &repo{db: db}, nil
}

func (r *repo) Close() error {
	return r.db.Close()
}

func (r *repo) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	return wrapErr(r.db.View(fn))
}

func (r *repo) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}

	return wrapErr(r.db.Update(fn))
}

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrUnavailable):
		return err
	default:
		return store.Unavailable(err)
	}
}

func getDoc(tx *bolt.Tx, key string) (store.Document, error) {
	data := tx.Bucket(bucketRecords).Get([]byte(key))
	if data == nil {
		return nil, store.ErrNotFound
	}

	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("record %s: %w", key, store.ErrMalformed)
	}

	return doc, nil
}

func putDoc(tx *bolt.Tx, key string, doc store.Document) error {
	b := tx.Bucket(bucketRecords)
	if len(doc) == 0 {
		return b.Delete([]byte(key))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}

	return b.Put([]byte(key), data)
}

func (r *repo) Get(ctx context.Context, key string) (store.Document, error) {
	var doc store.Document
	err := r.view(ctx, func(tx *bolt.Tx) error {
		var err error
		doc, err = getDoc(tx, key)
		return err
	})

	return doc, err
}

func (r *repo) Set(ctx context.Context, key string, doc store.Document) error {
	return r.update(ctx, func(tx *bolt.Tx) error {
		return putDoc(tx, key, doc)
	})
}

func (r *repo) Create(ctx context.Context, key string, doc store.Document) error {
	return r.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketRecords).Get([]byte(key)) != nil {
			return store.ErrAlreadyExists
		}

		return putDoc(tx, key, doc)
	})
}

func (r *repo) merge(tx *bolt.Tx, key string, doc store.Document) error {
	cur, err := getDoc(tx, key)
	if errors.Is(err, store.ErrNotFound) {
		cur = make(store.Document, len(doc))
	} else if err != nil {
		return err
	}

	for field, value := range doc {
		cur[field] = value
	}

	return putDoc(tx, key, cur)
}

func (r *repo) Merge(ctx context.Context, key string, doc store.Document) error {
	if len(doc) == 0 {
		return nil
	}

	return r.update(ctx, func(tx *bolt.Tx) error {
		return r.merge(tx, key, doc)
	})
}

func (r *repo) MergeIfNewer(ctx context.Context, key, orderField string, order int64, doc store.Document) (int64, bool, error) {
	var (
		revision int64
		accepted bool
	)

	err := r.update(ctx, func(tx *bolt.Tx) error {
		cur, err := getDoc(tx, key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if raw, ok := cur[store.RevisionField]; ok {
			if err := json.Unmarshal(raw, &revision); err != nil {
				return fmt.Errorf("revision of %s: %w", key, store.ErrMalformed)
			}
		}

		if raw, ok := cur[orderField]; ok {
			var stored int64
			if err := json.Unmarshal(raw, &stored); err != nil {
				return fmt.Errorf("field %s of %s: %w", orderField, key, store.ErrMalformed)
			}

			if stored > order {
				return nil
			}
		}

		accepted = true
		revision++
		doc = doc.Clone()
		doc[orderField] = json.RawMessage(fmt.Sprint(order))
		doc[store.RevisionField] = json.RawMessage(fmt.Sprint(revision))

		return r.merge(tx, key, doc)
	})
	if err != nil {
		return 0, false, err
	}

	return revision, accepted, nil
}

func (r *repo) DeleteFields(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	return r.update(ctx, func(tx *bolt.Tx) error {
		cur, err := getDoc(tx, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		for _, f := range fields {
			delete(cur, f)
		}

		return putDoc(tx, key, cur)
	})
}

func (r *repo) Delete(ctx context.Context, key string) error {
	return r.update(ctx, func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Delete([]byte(key)); err != nil {
			return err
		}

		return tx.Bucket(bucketLists).Delete([]byte(key))
	})
}

func (r *repo) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := r.view(ctx, func(tx *bolt.Tx) error {
		p := []byte(prefix)
		for _, bucket := range [][]byte{bucketRecords, bucketLists} {
			c := tx.Bucket(bucket).Cursor()
			for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
				keys = append(keys, string(k))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)

	return slices.Compact(keys), nil
}

func getList(tx *bolt.Tx, key string) ([]json.RawMessage, error) {
	data := tx.Bucket(bucketLists).Get([]byte(key))
	if data == nil {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("list %s: %w", key, store.ErrMalformed)
	}

	return list, nil
}

func (r *repo) Append(ctx context.Context, key string, value json.RawMessage, limit int) (int, error) {
	var length int
	err := r.update(ctx, func(tx *bolt.Tx) error {
		list, err := getList(tx, key)
		if err != nil {
			return err
		}

		list = append(list, value)
		if limit > 0 && len(list) > limit {
			list = list[len(list)-limit:]
		}
		length = len(list)

		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to marshal list %s: %w", key, err)
		}

		return tx.Bucket(bucketLists).Put([]byte(key), data)
	})

	return length, err
}

func (r *repo) Range(ctx context.Context, key string) ([]json.RawMessage, error) {
	var list []json.RawMessage
	err := r.view(ctx, func(tx *bolt.Tx) error {
		var err error
		list, err = getList(tx, key)
		return err
	})

	return list, err
}
