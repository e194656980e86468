package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/store"

	"github.com/oklog/ulid/v2"
	"github.com/samber/do"
)

const (
	maxUsernameAttempts = 10
	usernameSuffixLen   = 6
	passwordLen         = 8

	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrAlreadyIssued: the owner has used their one trial, forever.
	ErrAlreadyIssued = errors.New("trial: already issued for this owner")
	// ErrActiveExists: the owner still has a running trial.
	ErrActiveExists = errors.New("trial: active trial exists for this owner")
	// ErrGenerationExhausted: username namespace pressure, request-fatal.
	ErrGenerationExhausted = errors.New("trial: could not generate a unique username")
)

// Service issues trial accounts. Every check-and-reserve sequence runs under
// one mutex: that is the single serialization point that keeps usernames
// globally unique and owners at one active trial across concurrent calls.
type Service struct {
	cfg  *config.Config
	repo store.Repository
	now  func() time.Time
	rand func(n int) string

	mu sync.Mutex
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[store.Repository](di),
		time.Now,
	), nil
}

func newService(cfg *config.Config, repo store.Repository, now func() time.Time) *Service {
	return &Service{
		cfg:  cfg,
		repo: repo,
		now:  now,
		rand: randomString,
	}
}

// Issue creates a trial account for the owner, creating the owner profile on
// first contact. The account row and the owner's HasUsedTrial flag are
// persisted as one atomic unit, so a failure can never leave an owner able
// to claim a second trial next to an orphan account.
func (s *Service) Issue(ctx context.Context, phone, name string) (*store.TrialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.repo.FindOwnerByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("find owner: %w", err)
		}

		owner = &store.Owner{
			Phone:  phone,
			Name:   name,
			Status: store.OwnerTrial,
		}
	}

	if owner.HasUsedTrial {
		return nil, ErrAlreadyIssued
	}

	now := s.now()

	existing, err := s.repo.FindActiveTrialByOwner(ctx, phone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find active trial: %w", err)
	}
	if existing != nil {
		if !existing.IsExpired(now) {
			return nil, ErrActiveExists
		}

		existing.Status = store.TrialExpired
		if err := s.repo.SaveTrial(ctx, existing); err != nil {
			return nil, fmt.Errorf("expire stale trial: %w", err)
		}
	}

	username, err := s.uniqueUsername(ctx)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.cfg.Trial.Duration.Std())

	account := &store.TrialAccount{
		ID:         ulid.Make().String(),
		OwnerPhone: phone,
		Username:   username,
		Password:   s.rand(passwordLen),
		ServerURL:  s.cfg.Trial.ServerURL,
		Port:       s.cfg.Trial.Port,
		Status:     store.TrialActive,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		FollowUpAt: expiresAt.Add(s.cfg.Trial.FollowUpOffset.Std()),
	}

	owner.HasUsedTrial = true
	owner.TrialRequestedAt = now
	owner.Status = store.OwnerTrial
	if owner.Name == "" {
		owner.Name = name
	}

	if err := s.repo.IssueTrial(ctx, owner, account); err != nil {
		return nil, fmt.Errorf("persist trial: %w", err)
	}

	slog.Info("Trial account issued",
		"phone", phone,
		"username", username,
		"expires_at", expiresAt)

	return account, nil
}

// GetActive returns the owner's running trial, transitioning it to expired
// (and returning nil) when the clock has passed its expiry.
func (s *Service) GetActive(ctx context.Context, phone string) (*store.TrialAccount, error) {
	account, err := s.repo.FindActiveTrialByOwner(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active trial: %w", err)
	}

	if account.IsExpired(s.now()) {
		account.Status = store.TrialExpired
		if err := s.repo.SaveTrial(ctx, account); err != nil {
			return nil, fmt.Errorf("expire trial: %w", err)
		}
		return nil, nil
	}

	return account, nil
}

func (s *Service) uniqueUsername(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate := fmt.Sprintf("%s_%s", s.cfg.Trial.UsernamePrefix, s.rand(usernameSuffixLen))

		taken, err := s.repo.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}

		if !taken {
			return candidate, nil
		}
	}

	slog.Error("Username generation exhausted, namespace under pressure",
		"attempts", maxUsernameAttempts,
		"telegram", true)

	return "", ErrGenerationExhausted
}

func randomString(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = charset[rand.IntN(len(charset))]
	}
	return string(out)
}
