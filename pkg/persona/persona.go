// Package persona defines the assistant's personality as an explicit
// configuration object: system instructions, conversation cues, the
// display transform for spoken output, and the interruption vocabulary.
// A Persona is passed into the session at construction; changing it takes
// effect at the next connect.
package persona

import (
	"fmt"
	"strings"

	"github.com/AConteh33/go-marcus/pkg/transcript"
)

// Persona configures the assistant's voice and conversational behavior.
type Persona struct {
	// Name the assistant answers to.
	Name string

	// SystemInstruction is sent to the backend at session setup.
	SystemInstruction string

	// Greeting is the text cue injected when no conversation history
	// exists at connect time.
	Greeting string

	// ContinuationCue prefixes the recent-history summary injected when
	// a prior transcript is restored at connect time.
	ContinuationCue string

	// Transform rewrites output transcription fragments before display.
	// Nil means no transform.
	Transform func(string) string

	// InterruptionKeywords is the vocabulary of words that short-circuit
	// normal text forwarding.
	InterruptionKeywords []string

	// InterruptionAck is the canned acknowledgment sent instead when an
	// interruption keyword matches.
	InterruptionAck string
}

// Default returns the stock Marcus persona.
func Default() Persona {
	return Persona{
		Name: "Marcus",
		SystemInstruction: `You are Marcus, a capable and personable voice assistant running on the user's desktop.

PERSONALITY:
- Warm, direct, and quick - you are spoken to out loud, so keep answers short
- Practical first: when the user wants something done, do it, then confirm briefly
- Remember context from earlier in the conversation and use it

TOOLS - USE THESE ACTIVELY:
- create_note, list_notes, update_note, delete_note: the user's notes
- create_appointment, list_appointments, delete_appointment: the user's appointments
- create_event, list_events, delete_event: the user's calendar events
- run_command: run a terminal command on this machine and report the output
- search_files: find files by name under the user's home directory
- take_screenshot: capture the screen to a file
- get_time: current date and time
- end_session: end the conversation when the user says goodbye

BEHAVIOR:
- Responses are spoken: 1-2 sentences, no lists, no markdown
- JUST DO what was asked - don't ask permission for routine actions
- When asked about notes or appointments, use the tools - don't invent content
- When the user clearly says goodbye, call end_session

IMPORTANT:
- Never mention that you're an AI or language model
- Never read tool call syntax or raw results aloud; summarize them naturally`,
		Greeting: "Greet the user briefly and ask how you can help.",
		ContinuationCue: "The user has reopened the assistant. Here is the recent conversation; " +
			"continue naturally without re-introducing yourself.",
		Transform: SpokenText,
		InterruptionKeywords: []string{
			"wait", "stop", "pause", "hold on", "nevermind", "never mind",
		},
		InterruptionAck: "The user asked you to hold on. Acknowledge in a few words and wait.",
	}
}

// SpokenText normalizes an output fragment for display: markdown emphasis
// markers never read well in a transcript of spoken audio.
func SpokenText(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

// Apply runs the persona's transform, if any.
func (p Persona) Apply(s string) string {
	if p.Transform == nil {
		return s
	}
	return p.Transform(s)
}

// historyContext bounds how many restored entries are replayed to the
// model in the continuation prompt.
const historyContext = 6

// ContinuationPrompt builds the cue sent at connect time when a prior
// transcript was restored: the continuation cue followed by the tail of
// the conversation, labeled per speaker.
func (p Persona) ContinuationPrompt(history transcript.Log) string {
	var b strings.Builder
	b.WriteString(p.ContinuationCue)
	for _, e := range history.Tail(historyContext) {
		label := "User"
		if e.Speaker == transcript.SpeakerAI {
			label = p.Name
			if label == "" {
				label = "Assistant"
			}
		}
		fmt.Fprintf(&b, "\n%s: %s", label, e.Text)
	}
	return b.String()
}

// IsInterruption reports whether the text matches the interruption
// vocabulary. Matching is on whole words, so "wait" matches but a
// "waiting room booking" does not.
func (p Persona) IsInterruption(text string) bool {
	normalized := " " + strings.Join(strings.Fields(strings.ToLower(text)), " ") + " "
	for _, kw := range p.InterruptionKeywords {
		if strings.Contains(normalized, " "+kw+" ") {
			return true
		}
	}
	return false
}
