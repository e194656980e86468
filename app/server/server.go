package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/client/wagate"
	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/service/queue"
	"github.com/jax91/bot-iptv-whatsapp/app/service/session"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

// Server exposes the gateway webhook and a small status surface.
type Server struct {
	cfg      *config.Config
	sessions *session.Service
	queueSvc *queue.Service
	gateway  *wagate.Client

	app       *fiber.App
	startedAt time.Time
}

type inboundMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:      do.MustInvoke[*config.Config](di),
		sessions: do.MustInvoke[*session.Service](di),
		queueSvc: do.MustInvoke[*queue.Service](di),
		gateway:  do.MustInvoke[*wagate.Client](di),

		startedAt: time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.app.Post("/webhook", s.handleWebhook)
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/status", s.handleStatus)

	return s, nil
}

func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var msg inboundMessage
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if msg.From == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing sender")
	}

	s.queueSvc.Add(msg.From, msg.Text)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	stats := s.sessions.Stats()

	return c.JSON(fiber.Map{
		"uptime":   time.Since(s.startedAt).String(),
		"sessions": stats,
		"gateway": fiber.Map{
			"healthy": s.gateway.Healthy(c.Context()),
		},
	})
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	if err := s.app.Listen(s.cfg.Server.Addr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped", "error", err)
	}
}
