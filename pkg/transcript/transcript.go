// Package transcript holds finalized conversation entries and their
// session-scoped persistence.
package transcript

import "github.com/google/uuid"

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// Entry is one finalized utterance. Entries are immutable once created;
// insertion order in a Log is conversational order.
type Entry struct {
	ID      string  `json:"id"`
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// NewEntry creates a finalized entry with a fresh id.
func NewEntry(speaker Speaker, text string) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    text,
	}
}

// Log is the ordered transcript of a conversation.
type Log []Entry

// Tail returns up to n trailing entries, most recent last.
func (l Log) Tail(n int) Log {
	if n <= 0 || len(l) <= n {
		return l
	}
	return l[len(l)-n:]
}
