// Package live implements the WebSocket client for the Gemini Live API
// (BidiGenerateContent). It handles session setup, realtime audio and text
// input, tool responses, and decodes server messages into ServerEvents.
package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AConteh33/go-marcus/internal/log"
)

const (
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultModel = "models/gemini-2.0-flash-exp"
	defaultVoice = "Puck"
)

// Errors returned by the client.
var (
	ErrNotConnected  = errors.New("live: not connected")
	ErrMissingAPIKey = errors.New("live: missing API key")
)

// Declaration is a tool schema advertised to the backend at setup.
type Declaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Config holds connection parameters for a live session.
type Config struct {
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string
	Declarations      []Declaration
	HandshakeTimeout  time.Duration
}

// Handlers receives connection lifecycle callbacks. All callbacks for one
// client are invoked from a single goroutine, in arrival order.
type Handlers struct {
	// OnOpen fires once the session setup has been sent.
	OnOpen func()

	// OnEvent fires for each decoded server message.
	OnEvent func(ServerEvent)

	// OnError fires on a read or protocol failure. Always followed by
	// connection teardown; the session must not be treated as live after.
	OnError func(err error)

	// OnClose fires when the peer closes the connection. Code is the
	// WebSocket close code where available, otherwise 0.
	OnClose func(code int, reason string)
}

// Client is a single live connection. Create with Dial; a Client is not
// reusable after Close.
type Client struct {
	cfg      Config
	handlers Handlers

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu     sync.RWMutex
	closed bool

	logger interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// Dial connects to the Gemini Live endpoint, sends the session setup
// (system instruction, voice, tool declarations) and starts the read loop.
func Dial(ctx context.Context, cfg Config, handlers Handlers) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	c := &Client{
		cfg:      cfg,
		handlers: handlers,
		logger:   log.Component("live"),
	}

	url := fmt.Sprintf("%s?key=%s", liveURL, cfg.APIKey)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("live: dial: %w", err)
	}
	c.ws = ws

	if err := c.sendSetup(); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("live: setup: %w", err)
	}

	// OnOpen must complete before the read loop starts so no server
	// event can race ahead of it.
	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}

	go c.readLoop()

	return c, nil
}

// sendSetup sends the initial session configuration.
func (c *Client) sendSetup() error {
	setup := map[string]any{
		"model": c.cfg.Model,
		"generation_config": map[string]any{
			"response_modalities": []string{"AUDIO"},
			"speech_config": map[string]any{
				"voice_config": map[string]any{
					"prebuilt_voice_config": map[string]any{
						"voice_name": c.cfg.Voice,
					},
				},
			},
		},
		"input_audio_transcription":  map[string]any{},
		"output_audio_transcription": map[string]any{},
	}

	if c.cfg.SystemInstruction != "" {
		setup["system_instruction"] = map[string]any{
			"parts": []map[string]any{
				{"text": c.cfg.SystemInstruction},
			},
		}
	}

	if len(c.cfg.Declarations) > 0 {
		var decls []map[string]any
		for _, d := range c.cfg.Declarations {
			decls = append(decls, map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Parameters,
			})
		}
		setup["tools"] = []map[string]any{
			{"function_declarations": decls},
		}
	}

	return c.sendJSON(map[string]any{"setup": setup})
}

// SendAudio sends a realtime PCM16 audio frame.
func (c *Client) SendAudio(pcm16 []byte) error {
	encoded := base64.StdEncoding.EncodeToString(pcm16)
	return c.sendJSON(map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      encoded,
					"mime_type": "audio/pcm",
				},
			},
		},
	})
}

// SendText injects a user text turn (greetings, continuations, typed input).
func (c *Client) SendText(text string) error {
	return c.sendJSON(map[string]any{
		"client_content": map[string]any{
			"turns": []map[string]any{
				{
					"role": "user",
					"parts": []map[string]any{
						{"text": text},
					},
				},
			},
			"turn_complete": true,
		},
	})
}

// SendToolResponse returns a tool result for the given call id.
func (c *Client) SendToolResponse(id, name, result string) error {
	return c.sendJSON(map[string]any{
		"tool_response": map[string]any{
			"function_responses": []map[string]any{
				{
					"id":   id,
					"name": name,
					"response": map[string]any{
						"result": result,
					},
				},
			},
		},
	})
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// isClosed reports whether Close was called locally.
func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// readLoop pumps server messages until the connection dies.
func (c *Client) readLoop() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.dispatchReadFailure(err)
			return
		}

		ev, err := parseServerMessage(raw)
		if err != nil {
			c.logger.Warn("unparseable server message", "error", err)
			continue
		}
		if ev.SetupComplete {
			c.logger.Debug("session ready")
		}
		if ev.Empty() {
			continue
		}
		if c.handlers.OnEvent != nil {
			c.handlers.OnEvent(ev)
		}
	}
}

// dispatchReadFailure routes a read error to OnClose or OnError.
// Local Close produces neither.
func (c *Client) dispatchReadFailure(err error) {
	if c.isClosed() {
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(closeErr.Code, closeErr.Text)
		}
		return
	}

	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}

// sendJSON writes one JSON message. Serialized so concurrent senders
// (audio frames vs. tool responses) cannot interleave a frame.
func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws == nil || c.isClosed() {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(v)
}
