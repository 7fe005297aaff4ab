package session

// OrbState is the conversational phase of the session. The presentation
// layer drives its affordances (and the orb animation) off this value.
type OrbState string

const (
	// StateDisconnected is the initial and terminal state.
	StateDisconnected OrbState = "disconnected"

	// StateConnecting means a connection attempt is in flight.
	StateConnecting OrbState = "connecting"

	// StateIdle means connected and listening passively.
	StateIdle OrbState = "idle"

	// StateListening means user speech has been detected.
	StateListening OrbState = "listening"

	// StateProcessing means tool calls are in flight.
	StateProcessing OrbState = "processing"

	// StateSpeaking means the assistant's audio response is playing.
	StateSpeaking OrbState = "speaking"
)
