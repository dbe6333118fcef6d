package kv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/db"
	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T, path string, opts ...SQLiteOption) *SQLite {
	t.Helper()
	ctx := context.Background()
	conn, err := db.NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, conn))

	store, err := NewSQLite(ctx, conn, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
		_ = conn.Close()
	})
	return store
}

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "complaints")
	assert.ErrorIs(t, err, ErrNotFound)

	sub, err := store.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "complaints", []byte(`[]`)))
	value, err := store.Get(ctx, "complaints")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))

	ev := nextEvent(t, sub)
	assert.Equal(t, "complaints", ev.Key)
	assert.Equal(t, events.KindSet, ev.Kind)
	assert.Equal(t, store.Origin(), ev.Origin)

	require.NoError(t, store.Set(ctx, "complaints", []byte(`[{"id":"x"}]`)))
	value, err = store.Get(ctx, "complaints")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"x"}]`, string(value))
	nextEvent(t, sub)

	require.NoError(t, store.Delete(ctx, "complaints"))
	ev = nextEvent(t, sub)
	assert.Equal(t, events.KindDelete, ev.Kind)

	_, err = store.Get(ctx, "complaints")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "complaints"), "deleting a missing key is not an error")
}

func TestMemory_Contract(t *testing.T) {
	store := NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })
	runStoreContract(t, store)
}

func TestSQLite_Contract(t *testing.T) {
	store := newSQLiteStore(t, filepath.Join(t.TempDir(), "kv.db"), WithPollInterval(0))
	runStoreContract(t, store)
}

func TestMemory_ViewsShareDataAndFeed(t *testing.T) {
	ctx := context.Background()
	root := NewMemory(nil)
	t.Cleanup(func() { _ = root.Close() })
	other := root.View()

	sub, err := root.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Set(ctx, "session", []byte(`{}`)))

	ev := nextEvent(t, sub)
	assert.Equal(t, other.Origin(), ev.Origin)
	assert.NotEqual(t, root.Origin(), ev.Origin)

	value, err := root.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(value))

	assert.NoError(t, other.Close())
	require.NoError(t, root.Set(ctx, "session", []byte(`{"id":"x"}`)))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(ctx, "k", []byte("abc")))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLite_DetectsWritesFromAnotherHandle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	watcher := newSQLiteStore(t, path, WithPollInterval(20*time.Millisecond))
	writer := newSQLiteStore(t, path, WithPollInterval(0))

	sub, err := watcher.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, "complaints", []byte(`[]`)))

	ev := nextEvent(t, sub)
	assert.Equal(t, "complaints", ev.Key)
	assert.Equal(t, events.KindSet, ev.Kind)

	require.NoError(t, writer.Delete(ctx, "complaints"))
	ev = nextEvent(t, sub)
	assert.Equal(t, events.KindDelete, ev.Kind)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	first := newSQLiteStore(t, path, WithPollInterval(0))
	require.NoError(t, first.Set(ctx, "complaints", []byte(`[1,2]`)))

	second := newSQLiteStore(t, path, WithPollInterval(0))
	value, err := second.Get(ctx, "complaints")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(value))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte(`{"key":"complaints","kind":"set","origin":"o1","at":"2024-03-01T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "complaints", ev.Key)
	assert.Equal(t, "o1", ev.Origin)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
	_, err = decodeEvent([]byte(`{}`))
	assert.Error(t, err)
}

func TestRedis_KeyLayout(t *testing.T) {
	r := NewRedis(nil, "", nil)
	assert.Equal(t, "campuscare:complaints", r.entryKey("complaints"))
	assert.Equal(t, "campuscare:events", r.eventChannel())
	assert.NotEmpty(t, r.Origin())
}
