package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/AConteh33/go-marcus/pkg/hub"
)

// handleState returns a snapshot of the conversation state.
func (s *Server) handleState(c *fiber.Ctx) error {
	user, ai := s.controller.Partial()
	s.mu.RLock()
	diagnostic := s.lastDiagnostic
	s.mu.RUnlock()

	resp := fiber.Map{
		"state":      string(s.controller.State()),
		"partial":    fiber.Map{"user": user, "ai": ai},
		"diagnostic": diagnostic,
	}
	if usage, ok := s.controller.ToolUsage(); ok {
		resp["tool_usage"] = usage
	}
	return c.JSON(resp)
}

// handleTranscript returns the finalized conversation log.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(s.controller.Transcript())
}

// handleListTools returns the registered tool declarations.
func (s *Server) handleListTools(c *fiber.Ctx) error {
	return c.JSON(s.controller.Declarations())
}

// handleConnect starts a conversation. Connecting while one is active
// is a no-op and still returns ok.
func (s *Server) handleConnect(c *fiber.Ctx) error {
	if err := s.controller.Connect(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"state": string(s.controller.State())})
}

// handleDisconnect ends the conversation.
func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	s.controller.Disconnect()
	return c.JSON(fiber.Map{"state": string(s.controller.State())})
}

// SayRequest is the body for POST /api/say.
type SayRequest struct {
	Text string `json:"text"`
}

// handleSay forwards a typed message into the conversation.
func (s *Server) handleSay(c *fiber.Ctx) error {
	var req SayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body",
		})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}
	if err := s.controller.SendText(text); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// handleEventsWS streams session events to a dashboard client. The
// current state is pushed immediately so the client renders without
// waiting for the next change.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)

	s.events.Publish(hub.Event{Type: hub.EventState, Payload: string(s.controller.State())})
	s.events.Publish(hub.Event{Type: hub.EventTranscript, Payload: s.controller.Transcript()})

	client.Run()
}
