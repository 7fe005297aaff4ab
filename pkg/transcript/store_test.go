package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	store := NewJSONStore(t.TempDir())

	saved := Log{
		NewEntry(SpeakerUser, "find my notes"),
		NewEntry(SpeakerAI, "You have three notes."),
	}
	require.NoError(t, store.Save(ConversationKey, saved))

	loaded, err := store.Load(ConversationKey)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, saved[0].ID, loaded[0].ID)
	assert.Equal(t, SpeakerUser, loaded[0].Speaker)
	assert.Equal(t, "You have three notes.", loaded[1].Text)
}

func TestJSONStoreMissingKeyIsEmpty(t *testing.T) {
	store := NewJSONStore(t.TempDir())

	loaded, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestJSONStoreCorruptFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversation.json"), []byte("{nope"), 0o644))

	store := NewJSONStore(dir)
	_, err := store.Load(ConversationKey)
	assert.Error(t, err)
}

func TestJSONStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	store := NewJSONStore(dir)

	require.NoError(t, store.Save(ConversationKey, Log{NewEntry(SpeakerUser, "hi")}))
	loaded, err := store.Load(ConversationKey)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestTail(t *testing.T) {
	l := Log{
		NewEntry(SpeakerUser, "one"),
		NewEntry(SpeakerAI, "two"),
		NewEntry(SpeakerUser, "three"),
	}

	assert.Len(t, l.Tail(2), 2)
	assert.Equal(t, "three", l.Tail(2)[1].Text)
	assert.Len(t, l.Tail(10), 3)
	assert.Len(t, l.Tail(0), 3)
}
