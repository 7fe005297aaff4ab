// Package assistant assembles the full voice assistant: live connection,
// audio pipeline, tool registry, entity storage and the conversation
// session, behind a single lifecycle.
package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AConteh33/go-marcus/internal/config"
	"github.com/AConteh33/go-marcus/internal/log"
	"github.com/AConteh33/go-marcus/pkg/audio"
	"github.com/AConteh33/go-marcus/pkg/entity"
	"github.com/AConteh33/go-marcus/pkg/live"
	"github.com/AConteh33/go-marcus/pkg/persona"
	"github.com/AConteh33/go-marcus/pkg/runner"
	"github.com/AConteh33/go-marcus/pkg/session"
	"github.com/AConteh33/go-marcus/pkg/tools"
	"github.com/AConteh33/go-marcus/pkg/transcript"
)

// Output audio from the model is 24 kHz mono PCM.
const playbackRate = 24000

// Config carries the assistant's settings, typically filled from flags
// and the environment in cmd/marcus.
type Config struct {
	APIKey    string
	Model     string
	Voice     string
	DataDir   string
	BridgeURL string
	Persona   persona.Persona
}

// Assistant owns the long-lived resources and the active session.
type Assistant struct {
	cfg      Config
	registry *tools.Registry
	entities *entity.Store
	store    transcript.Store
	capture  *audio.Capture
	speaker  *audio.Speaker
	player   *audio.Scheduler
	session  *session.Session

	mu     sync.RWMutex
	events session.Events
}

// New builds the assistant. Call AttachEvents before Connect if a
// presentation layer wants session notifications.
func New(cfg Config) (*Assistant, error) {
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = config.DefaultVoice
	}
	if cfg.DataDir == "" {
		cfg.DataDir = config.DataDir()
	}
	if cfg.Persona.Name == "" {
		cfg.Persona = persona.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	entities, err := entity.Open(filepath.Join(cfg.DataDir, "marcus.db"))
	if err != nil {
		return nil, fmt.Errorf("open entity store: %w", err)
	}

	a := &Assistant{
		cfg:      cfg,
		registry: tools.NewRegistry(),
		entities: entities,
		store:    transcript.NewJSONStore(filepath.Join(cfg.DataDir, "transcripts")),
		capture:  audio.NewCapture(audio.DefaultCaptureConfig()),
		speaker:  audio.NewSpeaker(playbackRate),
	}
	a.player = audio.NewScheduler(a.speaker, playbackRate, 1)
	a.registerBuiltins(runner.Select(cfg.BridgeURL))

	a.session = session.New(session.Config{
		Dialer:   a.dial,
		Capture:  a.capture,
		Player:   a.player,
		Registry: a.registry,
		Store:    a.store,
		Persona:  cfg.Persona,
	}, session.Events{
		OnState:      func(st session.OrbState) { a.forward().OnStateSafe(st) },
		OnPartial:    func(user, ai string) { a.forward().OnPartialSafe(user, ai) },
		OnTranscript: func(entries transcript.Log) { a.forward().OnTranscriptSafe(entries) },
		OnUsage:      func(u tools.Usage) { a.forward().OnUsageSafe(u) },
		OnDiagnostic: func(msg string) { a.forward().OnDiagnosticSafe(msg) },
	})
	return a, nil
}

// AttachEvents routes session notifications to the presentation layer.
// Must be called before the first Connect to see every event.
func (a *Assistant) AttachEvents(events session.Events) {
	a.mu.Lock()
	a.events = events
	a.mu.Unlock()
}

// dial opens the live connection with the registry's current tool set.
func (a *Assistant) dial(ctx context.Context, h session.ConnHandlers) (session.Conn, error) {
	decls := make([]live.Declaration, 0, len(a.registry.Declarations()))
	for _, d := range a.registry.Declarations() {
		decls = append(decls, live.Declaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return live.Dial(ctx, live.Config{
		APIKey:            a.cfg.APIKey,
		Model:             a.cfg.Model,
		Voice:             a.cfg.Voice,
		SystemInstruction: a.cfg.Persona.SystemInstruction,
		Declarations:      decls,
	}, live.Handlers{
		OnOpen:  h.OnOpen,
		OnEvent: h.OnEvent,
		OnError: h.OnError,
		OnClose: h.OnClose,
	})
}

// Connect starts a conversation.
func (a *Assistant) Connect(ctx context.Context) error {
	return a.session.Connect(ctx)
}

// Disconnect ends the conversation.
func (a *Assistant) Disconnect() {
	a.session.Disconnect()
}

// SendText forwards a typed message into the conversation.
func (a *Assistant) SendText(text string) error {
	return a.session.SendText(text)
}

// State returns the session's conversational phase.
func (a *Assistant) State() session.OrbState {
	return a.session.State()
}

// Transcript returns the finalized conversation log.
func (a *Assistant) Transcript() transcript.Log {
	return a.session.Transcript()
}

// Partial returns the in-progress transcription fragments.
func (a *Assistant) Partial() (user, ai string) {
	return a.session.Partial()
}

// ToolUsage returns the currently displayed tool usage, if any.
func (a *Assistant) ToolUsage() (tools.Usage, bool) {
	return a.registry.Usage()
}

// Declarations returns the registered tool declarations.
func (a *Assistant) Declarations() []tools.Declaration {
	return a.registry.Declarations()
}

// Close releases the assistant's long-lived resources. The session is
// disconnected first so the release order matches a normal teardown.
func (a *Assistant) Close() {
	a.session.Disconnect()
	if err := a.player.Close(); err != nil {
		log.Warn("failed to close playback", "error", err)
	}
	if err := a.entities.Close(); err != nil {
		log.Warn("failed to close entity store", "error", err)
	}
	if err := a.store.Close(); err != nil {
		log.Warn("failed to close transcript store", "error", err)
	}
}

// forward snapshots the attached events under the read lock.
func (a *Assistant) forward() eventSink {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return eventSink{a.events}
}

// eventSink adds nil-safe dispatch on top of session.Events.
type eventSink struct {
	ev session.Events
}

func (s eventSink) OnStateSafe(st session.OrbState) {
	if s.ev.OnState != nil {
		s.ev.OnState(st)
	}
}

func (s eventSink) OnPartialSafe(user, ai string) {
	if s.ev.OnPartial != nil {
		s.ev.OnPartial(user, ai)
	}
}

func (s eventSink) OnTranscriptSafe(entries transcript.Log) {
	if s.ev.OnTranscript != nil {
		s.ev.OnTranscript(entries)
	}
}

func (s eventSink) OnUsageSafe(u tools.Usage) {
	if s.ev.OnUsage != nil {
		s.ev.OnUsage(u)
	}
}

func (s eventSink) OnDiagnosticSafe(msg string) {
	if s.ev.OnDiagnostic != nil {
		s.ev.OnDiagnostic(msg)
	}
}
