// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "encoding/json"

// Event is the envelope broadcast to dashboard clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Event types pushed over the dashboard websocket.
const (
	EventState      = "state"
	EventPartial    = "partial"
	EventTranscript = "transcript"
	EventToolUsage  = "tool_usage"
	EventDiagnostic = "diagnostic"
)

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
