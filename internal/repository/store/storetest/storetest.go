// Package storetest holds the behavioural suite every store.Store backend
// must pass.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/repository/store"
)

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// Run executes the suite against stores produced by newStore. Every call of
// newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(ctx, "room:none")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SetReplaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", store.Document{"a": raw("1"), "b": raw(`"x"`)}))
		require.NoError(t, s.Set(ctx, "k", store.Document{"a": raw("2")}))

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, store.Document{"a": raw("2")}, doc)
	})

	t.Run("CreateOnce", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "k", store.Document{"a": raw("1")}))

		err := s.Create(ctx, "k", store.Document{"a": raw("2")})
		assert.ErrorIs(t, err, store.ErrAlreadyExists)

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, "1", string(doc["a"]))
	})

	t.Run("MergeKeepsOtherFields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", store.Document{"a": raw("1"), "b": raw("2")}))
		require.NoError(t, s.Merge(ctx, "k", store.Document{"b": raw("3"), "c": raw("4")}))

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, store.Document{"a": raw("1"), "b": raw("3"), "c": raw("4")}, doc)
	})

	t.Run("MergeCreatesMissing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Merge(ctx, "k", store.Document{"u1": raw(`{"lastSeen":1}`)}))

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"lastSeen":1}`, string(doc["u1"]))
	})

	t.Run("MergeIfNewer", func(t *testing.T) {
		s := newStore(t)

		rev, ok, err := s.MergeIfNewer(ctx, "k", "ts", 100, store.Document{"v": raw("1")})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), rev)

		rev, ok, err = s.MergeIfNewer(ctx, "k", "ts", 50, store.Document{"v": raw("2")})
		require.NoError(t, err)
		assert.False(t, ok, "stale write must be dropped")
		assert.Equal(t, int64(1), rev)

		rev, ok, err = s.MergeIfNewer(ctx, "k", "ts", 100, store.Document{"v": raw("3")})
		require.NoError(t, err)
		assert.True(t, ok, "equal timestamps resolve to the later arrival")
		assert.Equal(t, int64(2), rev)

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, "3", string(doc["v"]))
		assert.JSONEq(t, "100", string(doc["ts"]))
		assert.JSONEq(t, "2", string(doc[store.RevisionField]))
	})

	t.Run("MergeIfNewerOverMergedDoc", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", store.Document{"video": raw(`"a"`)}))

		_, ok, err := s.MergeIfNewer(ctx, "k", "ts", 10, store.Document{"v": raw("1")})
		require.NoError(t, err)
		assert.True(t, ok)

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `"a"`, string(doc["video"]))
	})

	t.Run("DeleteFields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", store.Document{"a": raw("1"), "b": raw("2")}))
		require.NoError(t, s.DeleteFields(ctx, "k", "a"))

		doc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, store.Document{"b": raw("2")}, doc)

		require.NoError(t, s.DeleteFields(ctx, "missing", "a"))
	})

	t.Run("DeleteRemovesDocsAndLists", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", store.Document{"a": raw("1")}))
		_, err := s.Append(ctx, "l", raw(`"m"`), 0)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "k"))
		require.NoError(t, s.Delete(ctx, "l"))
		require.NoError(t, s.Delete(ctx, "never"))

		_, err = s.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrNotFound)

		list, err := s.Range(ctx, "l")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("ListKeysWithPrefix", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"room:1", "room:2", "room:1:playback", "user:1"} {
			require.NoError(t, s.Set(ctx, k, store.Document{"a": raw("1")}))
		}
		_, err := s.Append(ctx, "room:1:messages", raw("1"), 0)
		require.NoError(t, err)

		keys, err := s.ListKeysWithPrefix(ctx, store.RoomPrefix)
		require.NoError(t, err)
		assert.Equal(t, []string{"room:1", "room:1:messages", "room:1:playback", "room:2"}, keys)

		keys, err = s.ListKeysWithPrefix(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("AppendAndRange", func(t *testing.T) {
		s := newStore(t)
		for i := 1; i <= 3; i++ {
			n, err := s.Append(ctx, "l", raw(fmt.Sprint(i)), 0)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}

		list, err := s.Range(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, []json.RawMessage{raw("1"), raw("2"), raw("3")}, list)
	})

	t.Run("AppendTrimsOldest", func(t *testing.T) {
		s := newStore(t)
		for i := 1; i <= 5; i++ {
			_, err := s.Append(ctx, "l", raw(fmt.Sprint(i)), 3)
			require.NoError(t, err)
		}

		list, err := s.Range(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, []json.RawMessage{raw("3"), raw("4"), raw("5")}, list)
	})

	t.Run("ConcurrentAppendsAreNotLost", func(t *testing.T) {
		s := newStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Append(ctx, "l", raw(fmt.Sprint(i)), 0)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		list, err := s.Range(ctx, "l")
		require.NoError(t, err)
		assert.Len(t, list, 20)
	})

	t.Run("ConcurrentFieldMerges", func(t *testing.T) {
		s := newStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Merge(ctx, "p", store.Document{fmt.Sprintf("u%d", i): raw("1")}))
			}()
		}
		wg.Wait()

		doc, err := s.Get(ctx, "p")
		require.NoError(t, err)
		assert.Len(t, doc, 10)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.Get(cctx, "k")
		assert.ErrorIs(t, err, store.ErrUnavailable)
	})
}
