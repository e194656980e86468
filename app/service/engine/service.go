package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/service/conversation"
	"github.com/jax91/bot-iptv-whatsapp/app/service/queue"

	"github.com/samber/do"
)

const (
	senderBuffer      = 16
	workerIdleTimeout = 5 * time.Minute
)

// Service fans the inbound queue out to one worker per correspondent.
// Messages from the same phone number are handled strictly in arrival order;
// different numbers proceed in parallel. Idle workers retire on their own.
type Service struct {
	conversationSvc *conversation.Service
	queueSvc        *queue.Service

	mu      sync.Mutex
	workers map[string]chan queue.Message
	wg      sync.WaitGroup
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		queueSvc:        do.MustInvoke[*queue.Service](di),
		workers:         make(map[string]chan queue.Message),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case msg, ok := <-s.queueSvc.Channel():
			if !ok {
				s.wg.Wait()
				return
			}

			s.dispatch(ctx, msg)
		}
	}
}

func (s *Service) dispatch(ctx context.Context, msg queue.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.workers[msg.Sender]
	if !ok {
		ch = make(chan queue.Message, senderBuffer)
		s.workers[msg.Sender] = ch

		s.wg.Add(1)
		go s.worker(ctx, msg.Sender, ch)
	}

	select {
	case ch <- msg:
	default:
		slog.Warn("Correspondent queue is full, dropping message", "sender", msg.Sender)
	}
}

func (s *Service) worker(ctx context.Context, sender string, ch chan queue.Message) {
	defer s.wg.Done()

	idle := time.NewTimer(workerIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			s.process(ctx, msg)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(workerIdleTimeout)
		case <-idle.C:
			if s.retire(sender, ch) {
				return
			}
			idle.Reset(workerIdleTimeout)
		}
	}
}

// retire removes an idle worker. Dispatch sends under the same mutex, so a
// worker that still has buffered messages stays alive.
func (s *Service) retire(sender string, ch chan queue.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ch) > 0 {
		return false
	}

	delete(s.workers, sender)
	return true
}

func (s *Service) process(ctx context.Context, msg queue.Message) {
	start := time.Now()

	if err := s.conversationSvc.HandleMessage(ctx, msg.Sender, msg.Text); err != nil {
		slog.Warn("HandleMessage error", "error", err)
	}

	slog.Info("Processed message",
		"sender", msg.Sender,
		"waited", start.Sub(msg.ReceivedAt),
		"duration", time.Since(start))
}
