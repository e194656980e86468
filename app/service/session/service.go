package session

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"

	"github.com/samber/do"
)

// Service owns the TTL-keyed session map. Operations on different phone
// numbers proceed in parallel; operations on the same number are serialized
// by a per-entry mutex. Expiry is decided lazily on every read against the
// stored timestamp; the periodic sweep only reclaims memory.
type Service struct {
	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu sync.Mutex
	s  Session
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return newService(cfg.Session.TTL.Std(), cfg.Session.SweepEvery.Std(), time.Now), nil
}

func newService(ttl, sweepEvery time.Duration, now func() time.Time) *Service {
	return &Service{
		ttl:        ttl,
		sweepEvery: sweepEvery,
		now:        now,
		entries:    make(map[string]*entry),
	}
}

func (s *Service) entryFor(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}

	return e
}

// Get returns the live session for id, synthesizing a fresh INITIAL session
// when none exists or the stored one outlived the TTL.
func (s *Service) Get(id string) Session {
	e := s.entryFor(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.expired(e.s) {
		e.s = s.fresh()
	}

	return cloneSession(e.s)
}

// Set merges patch into the context, records the state transition and stamps
// activity. Keys present in patch overwrite existing ones.
func (s *Service) Set(id string, state State, patch map[string]any) {
	e := s.entryFor(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.expired(e.s) {
		e.s = s.fresh()
	}

	if e.s.Context == nil {
		e.s.Context = make(map[string]any)
	}
	maps.Copy(e.s.Context, patch)

	e.s.Previous = e.s.Current
	e.s.Current = state
	e.s.Interactions++
	e.s.LastActivityAt = s.now()

	slog.Debug("Session state updated", "id", id, "state", state)
}

// Touch refreshes the activity timestamp without touching state, so a turn
// already being handled cannot expire mid-dispatch.
func (s *Service) Touch(id string) {
	e := s.entryFor(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.expired(e.s) {
		e.s = s.fresh()
		return
	}

	e.s.LastActivityAt = s.now()
}

// Reset forces the session back to INITIAL with an empty context.
func (s *Service) Reset(id string) {
	e := s.entryFor(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.s = s.fresh()
}

// Data reads a single context value.
func (s *Service) Data(id, key string) (any, bool) {
	e := s.entryFor(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.expired(e.s) {
		e.s = s.fresh()
	}

	value, ok := e.s.Context[key]
	return value, ok
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	ids := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ids = append(ids, e)
	}
	s.mu.Unlock()

	stats := Stats{ByState: make(map[State]int)}
	now := s.now()

	for _, e := range ids {
		e.mu.Lock()
		if !e.s.LastActivityAt.IsZero() && now.Sub(e.s.LastActivityAt) <= s.ttl {
			stats.TotalSessions++
			stats.TotalInteractions += e.s.Interactions
			stats.ByState[e.s.Current]++
		}
		e.mu.Unlock()
	}

	return stats
}

// RunSweep evicts expired entries on a fixed period until ctx is done.
func (s *Service) RunSweep(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sweepOnce(); removed > 0 {
				slog.Debug("Session sweep removed expired entries", "count", removed)
			}
		}
	}
}

func (s *Service) sweepOnce() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}

		if s.expired(e.s) {
			delete(s.entries, id)
			removed++
		}
		e.mu.Unlock()
	}

	return removed
}

func (s *Service) expired(sess Session) bool {
	if sess.LastActivityAt.IsZero() {
		return true
	}
	return s.now().Sub(sess.LastActivityAt) > s.ttl
}

func (s *Service) fresh() Session {
	return Session{
		Current:        StateInitial,
		Context:        make(map[string]any),
		LastActivityAt: s.now(),
	}
}

func cloneSession(sess Session) Session {
	clone := sess
	clone.Context = make(map[string]any, len(sess.Context))
	maps.Copy(clone.Context, sess.Context)
	return clone
}
