package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = Key{ErrandNumber: "PRH-2024-000001", Task: "DecisionHandlingTask", Effect: "message"}

func TestOnce_RunsEffectOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	calls := 0
	effect := func(context.Context) (string, error) {
		calls++
		return "msg-1", nil
	}

	ref, replayed, err := Once(ctx, store, key, effect)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "msg-1", ref)

	ref, replayed, err = Once(ctx, store, key, effect)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "msg-1", ref)
	assert.Equal(t, 1, calls)
}

func TestOnce_FailedEffectIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	_, _, err := Once(ctx, store, key, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOnce_InvalidKey(t *testing.T) {
	_, _, err := Once(context.Background(), NewMemoryStore(), Key{Task: "x"}, func(context.Context) (string, error) {
		t.Fatal("effect must not run")
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStore_PutKeepsFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, Entry{Key: key, Reference: "first"}))
	require.NoError(t, store.Put(ctx, Entry{Key: key, Reference: "second"}))

	e, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", e.Reference)
}

func TestMemoryStore_PurgeAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	old := Entry{Key: Key{ErrandNumber: "A", Task: "T", Effect: "old"}, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := Entry{Key: Key{ErrandNumber: "A", Task: "T", Effect: "fresh"}, CreatedAt: now}
	other := Entry{Key: Key{ErrandNumber: "B", Task: "T", Effect: "x"}, CreatedAt: now}
	for _, e := range []Entry{old, fresh, other} {
		require.NoError(t, store.Put(ctx, e))
	}

	entries, err := store.List(ctx, "A")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "old", entries[0].Effect)

	n, err := store.Purge(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err = store.List(ctx, "A")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Effect)
}
