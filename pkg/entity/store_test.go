package entity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)

	created, err := store.Create("note", map[string]any{"content": "buy milk"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get("note", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Data["content"])
	assert.Equal(t, "note", got.Kind)
}

func TestGetWrongKindIsNotFound(t *testing.T) {
	store := openTestStore(t)

	created, err := store.Create("note", map[string]any{"content": "x"})
	require.NoError(t, err)

	_, err = store.Get("appointment", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	store := openTestStore(t)

	created, err := store.Create("note", map[string]any{"content": "v1"})
	require.NoError(t, err)

	updated, err := store.Update("note", created.ID, map[string]any{"content": "v2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Data["content"])

	_, err = store.Update("note", "missing-id", map[string]any{"content": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	created, err := store.Create("event", map[string]any{"title": "launch"})
	require.NoError(t, err)

	require.NoError(t, store.Delete("event", created.ID))
	_, err = store.Get("event", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete("event", created.ID), ErrNotFound)
}

func TestListReturnsOnlyKindInOrder(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Create("note", map[string]any{"content": "first"})
	require.NoError(t, err)
	_, err = store.Create("appointment", map[string]any{"title": "dentist"})
	require.NoError(t, err)
	second, err := store.Create("note", map[string]any{"content": "second"})
	require.NoError(t, err)

	notes, err := store.List("note")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, first.ID, notes[0].ID)
	assert.Equal(t, second.ID, notes[1].ID)

	empty, err := store.List("ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
