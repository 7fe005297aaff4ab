package live

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetupComplete(t *testing.T) {
	ev, err := parseServerMessage([]byte(`{"setupComplete": {}}`))
	require.NoError(t, err)
	assert.True(t, ev.SetupComplete)
	assert.False(t, ev.Empty())
}

func TestParseModelTurnAudio(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	raw := `{"serverContent": {"modelTurn": {"parts": [
		{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "` +
		base64.StdEncoding.EncodeToString(pcm) + `"}}
	]}}}`

	ev, err := parseServerMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, pcm, ev.Audio)
	assert.Equal(t, "audio/pcm;rate=24000", ev.AudioMIME)
}

func TestParseTranscriptions(t *testing.T) {
	raw := `{"serverContent": {
		"inputTranscription": {"text": "turn off "},
		"outputTranscription": {"text": "Sure, "}
	}}`

	ev, err := parseServerMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "turn off ", ev.InputTranscription)
	assert.Equal(t, "Sure, ", ev.OutputTranscription)
}

func TestParseTurnCompleteAndInterrupted(t *testing.T) {
	ev, err := parseServerMessage([]byte(`{"serverContent": {"turnComplete": true}}`))
	require.NoError(t, err)
	assert.True(t, ev.TurnComplete)

	ev, err = parseServerMessage([]byte(`{"serverContent": {"interrupted": true}}`))
	require.NoError(t, err)
	assert.True(t, ev.Interrupted)
}

func TestParseToolCallBatchPreservesOrder(t *testing.T) {
	raw := `{"toolCall": {"functionCalls": [
		{"id": "call-1", "name": "list_notes", "args": {}},
		{"id": "call-2", "name": "create_note", "args": {"content": "milk"}}
	]}}`

	ev, err := parseServerMessage([]byte(raw))
	require.NoError(t, err)
	require.Len(t, ev.ToolCalls, 2)
	assert.Equal(t, "list_notes", ev.ToolCalls[0].Name)
	assert.Equal(t, "call-2", ev.ToolCalls[1].ID)
	assert.Equal(t, "milk", ev.ToolCalls[1].Args["content"])
}

func TestParseTextPartFeedsOutputTranscription(t *testing.T) {
	raw := `{"serverContent": {"modelTurn": {"parts": [{"text": "Hello there."}]}}}`

	ev, err := parseServerMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", ev.OutputTranscription)
}

func TestParseUnknownMessageIsEmpty(t *testing.T) {
	ev, err := parseServerMessage([]byte(`{"usageMetadata": {"totalTokenCount": 42}}`))
	require.NoError(t, err)
	assert.True(t, ev.Empty())
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := parseServerMessage([]byte(`{nope`))
	assert.Error(t, err)
}
