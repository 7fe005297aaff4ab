package session

import (
	"context"

	"github.com/AConteh33/go-marcus/pkg/live"
)

// Conn is the slice of the live connection the session drives.
// *live.Client satisfies it.
type Conn interface {
	SendAudio(pcm []byte) error
	SendText(text string) error
	SendToolResponse(id, name, result string) error
	Close() error
}

// ConnHandlers are the callbacks a Dialer wires into the connection it
// opens. OnOpen may fire before the Dialer returns.
type ConnHandlers struct {
	OnOpen  func()
	OnEvent func(live.ServerEvent)
	OnError func(err error)
	OnClose func(code int, reason string)
}

// Dialer opens a live connection with the given handlers attached.
type Dialer func(ctx context.Context, h ConnHandlers) (Conn, error)

// Capture is the microphone pipeline. *audio.Capture satisfies it.
type Capture interface {
	Start(onFrame func(pcm []byte)) error
	SetMuted(muted bool)
	Stop()
}

// Player is the playback pipeline. *audio.Scheduler satisfies it.
type Player interface {
	Enqueue(data []byte, mimeType string) error
	Interrupt()
}
