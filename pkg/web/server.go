// Package web provides the real-time dashboard for the assistant: a
// small JSON API for state and control plus a websocket event stream.
package web

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/AConteh33/go-marcus/internal/log"
	"github.com/AConteh33/go-marcus/pkg/hub"
	"github.com/AConteh33/go-marcus/pkg/session"
	"github.com/AConteh33/go-marcus/pkg/tools"
	"github.com/AConteh33/go-marcus/pkg/transcript"
)

// Controller is the slice of the assistant the dashboard drives.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect()
	SendText(text string) error
	State() session.OrbState
	Transcript() transcript.Log
	Partial() (user, ai string)
	ToolUsage() (tools.Usage, bool)
	Declarations() []tools.Declaration
}

// Server is the dashboard server.
type Server struct {
	app        *fiber.App
	port       string
	controller Controller
	events     *hub.Hub

	mu             sync.RWMutex
	lastDiagnostic string
}

// NewServer builds the dashboard server around a controller.
func NewServer(port string, controller Controller) *Server {
	s := &Server{
		port:       port,
		controller: controller,
		events:     hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Marcus Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/transcript", s.handleTranscript)
	api.Get("/tools", s.handleListTools)
	api.Post("/connect", s.handleConnect)
	api.Post("/disconnect", s.handleDisconnect)
	api.Post("/say", s.handleSay)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the hub and listens. It blocks until shutdown.
func (s *Server) Start() error {
	log.Info("dashboard listening", "url", "http://localhost:"+s.port)
	go s.events.Run()
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SessionEvents returns session callbacks that mirror the conversation
// onto the dashboard websocket. Wire these into the session at build time.
func (s *Server) SessionEvents() session.Events {
	return session.Events{
		OnState: func(st session.OrbState) {
			s.events.Publish(hub.Event{Type: hub.EventState, Payload: string(st)})
		},
		OnPartial: func(user, ai string) {
			s.events.Publish(hub.Event{Type: hub.EventPartial, Payload: fiber.Map{
				"user": user,
				"ai":   ai,
			}})
		},
		OnTranscript: func(entries transcript.Log) {
			s.events.Publish(hub.Event{Type: hub.EventTranscript, Payload: entries})
		},
		OnUsage: func(u tools.Usage) {
			s.events.Publish(hub.Event{Type: hub.EventToolUsage, Payload: usagePayload(u)})
		},
		OnDiagnostic: func(msg string) {
			s.mu.Lock()
			s.lastDiagnostic = msg
			s.mu.Unlock()
			s.events.Publish(hub.Event{Type: hub.EventDiagnostic, Payload: msg})
		},
	}
}

func usagePayload(u tools.Usage) any {
	if u.Tool == "" {
		return nil
	}
	return u
}
