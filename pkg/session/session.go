// Package session implements the conversational state machine that ties
// the live connection, the audio pipeline, the tool registry and the
// transcript store together. One Session drives one conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AConteh33/go-marcus/internal/log"
	"github.com/AConteh33/go-marcus/pkg/live"
	"github.com/AConteh33/go-marcus/pkg/persona"
	"github.com/AConteh33/go-marcus/pkg/tools"
	"github.com/AConteh33/go-marcus/pkg/transcript"
)

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("session: not connected")

const (
	defaultEndSessionTool = "end_session"

	// After teardown the state is re-asserted once, in case a straggling
	// connection callback raced the shutdown and flipped it back.
	reassertDelay = 300 * time.Millisecond
)

// Config carries the session's collaborators. Dialer is required; the
// rest may be nil, in which case the corresponding feature is inert.
type Config struct {
	Dialer   Dialer
	Capture  Capture
	Player   Player
	Registry *tools.Registry
	Store    transcript.Store
	Persona  persona.Persona

	// EndSessionTool names the tool whose invocation ends the
	// conversation. Defaults to "end_session".
	EndSessionTool string

	// ConversationKey is the store key for the persisted transcript.
	ConversationKey string
}

// Events are the session's outbound notifications. All callbacks are
// invoked synchronously from the session's goroutines and must not block.
type Events struct {
	OnState      func(OrbState)
	OnPartial    func(user, ai string)
	OnTranscript func(entries transcript.Log)
	OnUsage      func(tools.Usage)
	OnDiagnostic func(message string)
}

// Session is the conversation state machine. All methods are safe for
// concurrent use.
type Session struct {
	cfg    Config
	events Events
	logger *slog.Logger

	mu          sync.Mutex
	state       OrbState
	conn        Conn
	openPending bool
	opened      bool
	entries     transcript.Log
	userBuf     string
	aiBuf       string
}

// New builds a disconnected session. If a registry and an OnUsage
// callback are both present, tool usage notifications are wired through.
func New(cfg Config, events Events) *Session {
	if cfg.EndSessionTool == "" {
		cfg.EndSessionTool = defaultEndSessionTool
	}
	if cfg.ConversationKey == "" {
		cfg.ConversationKey = transcript.ConversationKey
	}
	s := &Session{
		cfg:    cfg,
		events: events,
		logger: log.Component("session"),
		state:  StateDisconnected,
	}
	if cfg.Registry != nil && events.OnUsage != nil {
		cfg.Registry.SetObserver(events.OnUsage)
	}
	return s
}

// State returns the current conversational phase.
func (s *Session) State() OrbState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the finalized conversation log.
func (s *Session) Transcript() transcript.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(transcript.Log(nil), s.entries...)
}

// Partial returns the in-progress user and assistant transcription
// fragments for the current turn.
func (s *Session) Partial() (user, ai string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userBuf, s.aiBuf
}

// Connect opens the live connection. It is a no-op when a connection
// attempt is already in flight or a conversation is already active.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
	case StateIdle:
		if s.conn != nil {
			s.mu.Unlock()
			return nil
		}
	default:
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.emitState(StateConnecting)

	s.restoreTranscript()

	conn, err := s.cfg.Dialer(ctx, ConnHandlers{
		OnOpen:  s.handleOpen,
		OnEvent: s.handleEvent,
		OnError: s.handleError,
		OnClose: s.handleClose,
	})
	if err != nil {
		s.emitDiagnostic(fmt.Sprintf("Connection failed: %v. Check your network and API key.", err))
		s.teardown()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	pending := s.openPending
	s.openPending = false
	s.mu.Unlock()

	// The dialer may have signalled open before returning the
	// connection. Finish the handshake now that we hold it.
	if pending {
		s.completeOpen()
	}
	return nil
}

// Disconnect tears the session down. Safe to call at any time, from any
// state, including with resources already gone.
func (s *Session) Disconnect() {
	s.teardown()
}

// SendText forwards a typed message over the connection. Phrases the
// persona recognizes as interruption commands are replaced with a short
// acknowledgement prompt instead of being sent verbatim.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	conn := s.conn
	st := s.state
	s.mu.Unlock()
	if conn == nil || st == StateDisconnected || st == StateConnecting {
		return ErrNotConnected
	}
	if s.cfg.Persona.IsInterruption(text) {
		return conn.SendText(s.cfg.Persona.InterruptionAck)
	}
	return conn.SendText(text)
}

// restoreTranscript loads the persisted conversation so the history is
// visible before the first exchange and the greeting can be chosen.
func (s *Session) restoreTranscript() {
	if s.cfg.Store == nil {
		return
	}
	entries, err := s.cfg.Store.Load(s.cfg.ConversationKey)
	if err != nil {
		s.logger.Warn("failed to restore transcript", "error", err)
		return
	}
	s.mu.Lock()
	s.entries = entries
	snapshot := append(transcript.Log(nil), entries...)
	s.mu.Unlock()
	s.emitTranscript(snapshot)
}

func (s *Session) handleOpen() {
	s.mu.Lock()
	if s.state == StateDisconnected || s.opened {
		s.mu.Unlock()
		return
	}
	if s.conn == nil {
		s.openPending = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.completeOpen()
}

// completeOpen starts the microphone and primes the model: a greeting
// for a fresh conversation, a continuation cue with recent history
// otherwise. It runs once per connection; a server event that already
// advanced the state past connecting does not stop it.
func (s *Session) completeOpen() {
	s.mu.Lock()
	if s.opened || s.conn == nil || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.opened = true
	idle := false
	if s.state == StateConnecting {
		s.state = StateIdle
		idle = true
	}
	conn := s.conn
	history := append(transcript.Log(nil), s.entries...)
	s.mu.Unlock()
	if idle {
		s.emitState(StateIdle)
	}

	if s.cfg.Capture != nil {
		if err := s.cfg.Capture.Start(s.handleFrame); err != nil {
			s.logger.Warn("microphone unavailable", "error", err)
			s.emitDiagnostic("Microphone unavailable. You can still type messages.")
		}
	}

	prompt := s.cfg.Persona.Greeting
	if len(history) > 0 {
		prompt = s.cfg.Persona.ContinuationPrompt(history)
	}
	if prompt != "" {
		if err := conn.SendText(prompt); err != nil {
			s.logger.Warn("failed to send opening prompt", "error", err)
		}
	}
}

// handleFrame forwards a captured microphone frame. Frames arriving
// while the assistant is speaking are dropped by the capture mute; this
// is the remaining guard for frames in flight around a state change.
func (s *Session) handleFrame(pcm []byte) {
	s.mu.Lock()
	conn := s.conn
	ok := conn != nil && s.state != StateDisconnected && s.state != StateConnecting && s.state != StateSpeaking
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.SendAudio(pcm); err != nil {
		s.logger.Debug("dropped audio frame", "error", err)
	}
}

// handleEvent processes one server event. Events arrive sequentially on
// the connection's read goroutine.
func (s *Session) handleEvent(ev live.ServerEvent) {
	if ev.Interrupted && s.cfg.Player != nil {
		s.cfg.Player.Interrupt()
	}
	if ev.InputTranscription != "" {
		s.onInputTranscription(ev.InputTranscription)
	}
	if ev.OutputTranscription != "" {
		s.onOutputTranscription(ev.OutputTranscription)
	}
	if len(ev.Audio) > 0 && s.cfg.Player != nil {
		if err := s.cfg.Player.Enqueue(ev.Audio, ev.AudioMIME); err != nil {
			s.logger.Warn("failed to enqueue audio", "error", err)
		}
	}
	if len(ev.ToolCalls) > 0 {
		s.onToolCalls(ev.ToolCalls)
		if s.State() == StateDisconnected {
			return
		}
	}
	if ev.TurnComplete {
		s.onTurnComplete()
	}
}

// onInputTranscription accumulates user speech. A fragment arriving
// while assistant text is buffered means the user barged in: the stale
// assistant buffer is discarded so the interrupted reply is never logged.
func (s *Session) onInputTranscription(text string) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.aiBuf = ""
	changed := s.state != StateListening
	s.state = StateListening
	s.userBuf += text
	user, ai := s.userBuf, s.aiBuf
	s.mu.Unlock()

	if s.cfg.Capture != nil {
		s.cfg.Capture.SetMuted(false)
	}
	if changed {
		s.emitState(StateListening)
	}
	s.emitPartial(user, ai)
}

// onOutputTranscription accumulates the assistant's reply, run through
// the persona's spoken-text transform so markup is never voiced or shown.
func (s *Session) onOutputTranscription(text string) {
	text = s.cfg.Persona.Apply(text)
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	changed := s.state != StateSpeaking
	s.state = StateSpeaking
	s.aiBuf += text
	user, ai := s.userBuf, s.aiBuf
	s.mu.Unlock()

	// Mute the microphone so the speakers don't feed back into it.
	if s.cfg.Capture != nil {
		s.cfg.Capture.SetMuted(true)
	}
	if changed {
		s.emitState(StateSpeaking)
	}
	s.emitPartial(user, ai)
}

// onToolCalls executes a batch sequentially, responding to each call
// before moving to the next. The end-session tool short-circuits: its
// response is sent, then the session disconnects and the rest of the
// batch is skipped.
func (s *Session) onToolCalls(calls []live.FunctionCall) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	changed := s.state != StateProcessing
	s.state = StateProcessing
	conn := s.conn
	s.mu.Unlock()
	if changed {
		s.emitState(StateProcessing)
	}

	for _, call := range calls {
		var result string
		if s.cfg.Registry != nil {
			result = s.cfg.Registry.Execute(call.Name, call.Args)
		} else {
			result = fmt.Sprintf("Error: tool %q not found", call.Name)
		}
		if conn != nil {
			if err := conn.SendToolResponse(call.ID, call.Name, result); err != nil {
				s.logger.Warn("failed to send tool response", "tool", call.Name, "error", err)
			}
		}
		if call.Name == s.cfg.EndSessionTool {
			s.teardown()
			return
		}
	}
}

// onTurnComplete finalizes the buffered fragments into transcript
// entries, user first, skipping empty sides, then persists and idles.
func (s *Session) onTurnComplete() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	added := false
	if s.userBuf != "" {
		s.entries = append(s.entries, transcript.NewEntry(transcript.SpeakerUser, s.userBuf))
		s.userBuf = ""
		added = true
	}
	if s.aiBuf != "" {
		s.entries = append(s.entries, transcript.NewEntry(transcript.SpeakerAI, s.aiBuf))
		s.aiBuf = ""
		added = true
	}
	changed := s.state != StateIdle
	s.state = StateIdle
	snapshot := append(transcript.Log(nil), s.entries...)
	s.mu.Unlock()

	if s.cfg.Capture != nil {
		s.cfg.Capture.SetMuted(false)
	}
	if added {
		if s.cfg.Store != nil {
			if err := s.cfg.Store.Save(s.cfg.ConversationKey, snapshot); err != nil {
				s.logger.Warn("failed to persist transcript", "error", err)
			}
		}
		s.emitTranscript(snapshot)
	}
	s.emitPartial("", "")
	if changed {
		s.emitState(StateIdle)
	}
}

func (s *Session) handleError(err error) {
	s.logger.Error("connection error", "error", err)
	s.emitDiagnostic("Connection error. Check your network and API key.")
	s.teardown()
}

func (s *Session) handleClose(code int, reason string) {
	s.mu.Lock()
	already := s.state == StateDisconnected
	s.mu.Unlock()
	if already {
		return
	}
	s.logger.Info("connection closed", "code", code, "reason", reason)
	s.emitDiagnostic(closeDiagnostic(code, reason))
	s.teardown()
}

// closeDiagnostic turns a close code into a message a user can act on.
func closeDiagnostic(code int, reason string) string {
	switch {
	case code == 1011 && strings.Contains(strings.ToLower(reason), "quota"):
		return "API quota exhausted. The session has ended; check your plan and billing."
	case code == 1011:
		if reason != "" {
			return fmt.Sprintf("The server ended the session: %s", reason)
		}
		return "The server ended the session unexpectedly."
	case code == 1006:
		return "Connection lost. Check your network and API key."
	case code == 1000:
		return "Session closed."
	case reason != "":
		return fmt.Sprintf("Connection closed (code %d): %s", code, reason)
	default:
		return fmt.Sprintf("Connection closed (code %d).", code)
	}
}

// teardown releases everything best-effort. The state flips to
// disconnected first so the UI reflects the shutdown even if a release
// step fails, and every step runs regardless of earlier failures.
func (s *Session) teardown() {
	s.mu.Lock()
	already := s.state == StateDisconnected && s.conn == nil
	s.state = StateDisconnected
	conn := s.conn
	s.conn = nil
	s.openPending = false
	s.opened = false
	s.userBuf, s.aiBuf = "", ""
	s.mu.Unlock()

	if !already {
		s.emitState(StateDisconnected)
		s.emitPartial("", "")
	}

	if s.cfg.Capture != nil {
		s.safely("stop capture", func() { s.cfg.Capture.Stop() })
	}
	if conn != nil {
		s.safely("close connection", func() {
			if err := conn.Close(); err != nil {
				s.logger.Debug("connection close", "error", err)
			}
		})
	}
	if s.cfg.Player != nil {
		s.safely("interrupt playback", func() { s.cfg.Player.Interrupt() })
	}

	time.AfterFunc(reassertDelay, func() {
		s.mu.Lock()
		stale := s.conn == nil && s.state != StateDisconnected
		if stale {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		if stale {
			s.emitState(StateDisconnected)
		}
	})
}

// safely runs one teardown step, containing panics from half-released
// resources so the remaining steps still execute.
func (s *Session) safely(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("teardown step panicked", "step", step, "panic", r)
		}
	}()
	fn()
}

func (s *Session) emitState(st OrbState) {
	if s.events.OnState != nil {
		s.events.OnState(st)
	}
}

func (s *Session) emitPartial(user, ai string) {
	if s.events.OnPartial != nil {
		s.events.OnPartial(user, ai)
	}
}

func (s *Session) emitTranscript(entries transcript.Log) {
	if s.events.OnTranscript != nil {
		s.events.OnTranscript(entries)
	}
}

func (s *Session) emitDiagnostic(msg string) {
	if s.events.OnDiagnostic != nil {
		s.events.OnDiagnostic(msg)
	}
}
