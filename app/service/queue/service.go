package queue

import (
	"log/slog"
	"time"

	"github.com/samber/do"
)

const bufferSize = 256

var _ do.Shutdownable = (*Service)(nil)

// Service is the bounded inbound buffer between the gateway webhook and the
// engine. When it overflows the newest message is dropped with a warning
// rather than blocking the receiver.
type Service struct {
	queue chan Message
}

type Message struct {
	Sender     string
	Text       string
	ReceivedAt time.Time
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Message, bufferSize),
	}, nil
}

func (s *Service) Add(sender, text string) {
	defer func() {
		// Add may race with Shutdown closing the channel.
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- Message{sender, text, time.Now()}:
	default:
		slog.Warn("Message queue is full, dropping message", "sender", sender)
	}
}

func (s *Service) Channel() <-chan Message {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
