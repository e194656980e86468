package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps everything in process-local maps. It backs the engine when no
// database is configured and doubles as the repository used in tests.
type Memory struct {
	mu       sync.RWMutex
	owners   map[string]*Owner
	trials   map[string]*TrialAccount
	history  map[string][]ConversationEntry
	byName   map[string]string
	everSeen map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		owners:   make(map[string]*Owner),
		trials:   make(map[string]*TrialAccount),
		history:  make(map[string][]ConversationEntry),
		byName:   make(map[string]string),
		everSeen: make(map[string]bool),
	}
}

func (m *Memory) FindOwnerByPhone(_ context.Context, phone string) (*Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.owners[phone]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *owner
	return &clone, nil
}

func (m *Memory) SaveOwner(_ context.Context, owner *Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveOwnerLocked(owner)
	return nil
}

func (m *Memory) saveOwnerLocked(owner *Owner) {
	now := time.Now()

	clone := *owner
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	m.owners[clone.Phone] = &clone
}

func (m *Memory) FindActiveTrialByOwner(_ context.Context, phone string) (*TrialAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, trial := range m.trials {
		if trial.OwnerPhone == phone && trial.Status == TrialActive {
			clone := *trial
			return &clone, nil
		}
	}

	return nil, ErrNotFound
}

func (m *Memory) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Uniqueness covers every username ever issued, deleted records included.
	return m.everSeen[username], nil
}

func (m *Memory) IssueTrial(_ context.Context, owner *Owner, trial *TrialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *trial
	m.trials[clone.ID] = &clone
	m.byName[clone.Username] = clone.ID
	m.everSeen[clone.Username] = true

	m.saveOwnerLocked(owner)
	return nil
}

func (m *Memory) SaveTrial(_ context.Context, trial *TrialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *trial
	m.trials[clone.ID] = &clone
	m.everSeen[clone.Username] = true
	return nil
}

func (m *Memory) QueryExpiredUnsent(_ context.Context, since, until time.Time) ([]*TrialAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*TrialAccount
	for _, trial := range m.trials {
		if trial.Status != TrialExpired || trial.FollowUpSent {
			continue
		}
		if trial.ExpiresAt.Before(since) || trial.ExpiresAt.After(until) {
			continue
		}

		clone := *trial
		result = append(result, &clone)
	}

	return result, nil
}

func (m *Memory) BulkMarkExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, trial := range m.trials {
		if trial.Status == TrialActive && trial.ExpiresAt.Before(now) {
			trial.Status = TrialExpired
			count++
		}
	}

	return count, nil
}

func (m *Memory) QueryExpiringSubscriptions(_ context.Context, from, to time.Time) ([]*Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Owner
	for _, owner := range m.owners {
		if owner.Status != OwnerActive || owner.Subscription == nil {
			continue
		}

		end := owner.Subscription.EndDate
		if end.Before(from) || end.After(to) {
			continue
		}

		clone := *owner
		result = append(result, &clone)
	}

	return result, nil
}

func (m *Memory) AppendConversation(_ context.Context, phone, message string, dir Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[phone]
	if !ok {
		return nil
	}

	m.history[phone] = append(m.history[phone], ConversationEntry{
		Message:   message,
		Direction: dir,
		Timestamp: time.Now(),
	})
	owner.LastInteraction = time.Now()

	return nil
}

// History returns a copy of the recorded conversation for a phone number.
func (m *Memory) History(phone string) []ConversationEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.history[phone]
	out := make([]ConversationEntry, len(entries))
	copy(out, entries)
	return out
}
