package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/repository/store"
	"github.com/sharetube/watchparty/internal/repository/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		r, err := NewRepo(filepath.Join(t.TempDir(), "watchparty.db"))
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })

		return r
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchparty.db")
	ctx := context.Background()

	r, err := NewRepo(path)
	require.NoError(t, err)
	require.NoError(t, r.Set(ctx, store.RoomKey("r1"), store.Document{"name": []byte(`"Movie Night"`)}))
	require.NoError(t, r.Close())

	r, err = NewRepo(path)
	require.NoError(t, err)
	defer r.Close()

	doc, err := r.Get(ctx, store.RoomKey("r1"))
	require.NoError(t, err)
	require.JSONEq(t, `"Movie Night"`, string(doc["name"]))
}
