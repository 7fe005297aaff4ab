package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AConteh33/go-marcus/pkg/transcript"
)

func TestIsInterruptionMatchesWholeWordsOnly(t *testing.T) {
	p := Default()

	cases := []struct {
		text string
		want bool
	}{
		{"wait", true},
		{"Wait a moment", true},
		{"please STOP right there", true},
		{"hold on I changed my mind", true},
		{"never mind that", true},
		{"book the waiting room", false},
		{"which bus stops near me", false},
		{"unstoppable", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.IsInterruption(tc.text), "text: %q", tc.text)
	}
}

func TestSpokenTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "run ls -la now", SpokenText("run `ls -la` **now**"))
	assert.Equal(t, "plain", SpokenText("plain"))
}

func TestApplyWithNilTransform(t *testing.T) {
	p := Persona{}
	assert.Equal(t, "**kept**", p.Apply("**kept**"))
}

func TestContinuationPromptLabelsSpeakers(t *testing.T) {
	p := Default()
	history := transcript.Log{
		transcript.NewEntry(transcript.SpeakerUser, "what's on my calendar"),
		transcript.NewEntry(transcript.SpeakerAI, "Just the standup at ten."),
	}

	prompt := p.ContinuationPrompt(history)
	assert.Contains(t, prompt, p.ContinuationCue)
	assert.Contains(t, prompt, "User: what's on my calendar")
	assert.Contains(t, prompt, "Marcus: Just the standup at ten.")
}

func TestContinuationPromptBoundsHistory(t *testing.T) {
	p := Default()
	var history transcript.Log
	for i := 0; i < 20; i++ {
		history = append(history, transcript.NewEntry(transcript.SpeakerUser, "older"))
	}
	history = append(history, transcript.NewEntry(transcript.SpeakerUser, "newest"))

	prompt := p.ContinuationPrompt(history)
	assert.Contains(t, prompt, "newest")
	// Only the tail is replayed, not all 21 entries.
	assert.LessOrEqual(t, len(prompt), len(p.ContinuationCue)+historyContext*len("\nUser: older")+len("newest"))
}
