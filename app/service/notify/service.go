package notify

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/client/wagate"
	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/service/trial"
	"github.com/jax91/bot-iptv-whatsapp/app/store"

	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Service runs the three background sweeps: trial expiry, post-trial
// follow-ups and subscription renewal reminders. Sweep bodies are plain
// methods so they can be driven directly in tests, the Run loops only add
// scheduling on top.
type Service struct {
	cfg    *config.Config
	repo   store.Repository
	sender wagate.Sender
	now    func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[store.Repository](di),
		do.MustInvoke[*wagate.Client](di),
		time.Now,
	), nil
}

func newService(cfg *config.Config, repo store.Repository, sender wagate.Sender, now func() time.Time) *Service {
	return &Service{
		cfg:    cfg,
		repo:   repo,
		sender: sender,
		now:    now,
	}
}

// ExpirySweep transitions every overdue active trial to expired in one bulk
// statement and reports how many were flipped.
func (s *Service) ExpirySweep(ctx context.Context) (int64, error) {
	count, err := s.repo.BulkMarkExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Errorf("failed to mark expired trials: %w", err)
	}

	if count > 0 {
		slog.Info("Expired overdue trials", "count", count)
	}

	return count, nil
}

// FollowUpSweep sends the post-trial nudge to every trial that expired within
// the lookback window and was not contacted yet. Each account is marked sent
// and persisted before the next one is touched, so a crash mid-sweep never
// re-sends what already went out.
func (s *Service) FollowUpSweep(ctx context.Context) (int, error) {
	now := s.now()
	since := now.Add(-s.cfg.Notify.FollowUpWindow.Std())

	due, err := s.repo.QueryExpiredUnsent(ctx, since, now)
	if err != nil {
		return 0, oops.Errorf("failed to query follow-up candidates: %w", err)
	}

	sent := 0
	for _, account := range due {
		if account.Converted {
			continue
		}

		name := ""
		if owner, ownerErr := s.repo.FindOwnerByPhone(ctx, account.OwnerPhone); ownerErr == nil {
			name = owner.Name
		}

		if err := s.sender.Send(ctx, account.OwnerPhone, trial.FollowUpMessage(name)); err != nil {
			// Not marked sent, the next sweep retries this one.
			slog.Warn("Follow-up delivery failed",
				"phone", account.OwnerPhone,
				"error", err)
			continue
		}

		account.FollowUpSent = true
		account.FollowUpSentAt = s.now()

		if err := s.repo.SaveTrial(ctx, account); err != nil {
			slog.Error("Follow-up sent but not recorded, duplicate possible",
				"phone", account.OwnerPhone,
				"trial", account.ID,
				"error", err,
				"telegram", true)
			continue
		}

		sent++

		if err := s.pause(ctx); err != nil {
			return sent, err
		}
	}

	if sent > 0 {
		slog.Info("Follow-up sweep finished", "sent", sent, "candidates", len(due))
	}

	return sent, nil
}

// RenewalSweep reminds owners whose subscription ends within the configured
// horizon.
func (s *Service) RenewalSweep(ctx context.Context) (int, error) {
	now := s.now()

	owners, err := s.repo.QueryExpiringSubscriptions(ctx, now, now.Add(s.cfg.Notify.RenewalHorizon.Std()))
	if err != nil {
		return 0, oops.Errorf("failed to query expiring subscriptions: %w", err)
	}

	sent := 0
	for _, owner := range owners {
		if err := s.sender.Send(ctx, owner.Phone, renewalMessage(owner, now)); err != nil {
			slog.Warn("Renewal reminder delivery failed",
				"phone", owner.Phone,
				"error", err)
			continue
		}

		sent++

		if err := s.pause(ctx); err != nil {
			return sent, err
		}
	}

	if sent > 0 {
		slog.Info("Renewal sweep finished", "sent", sent)
	}

	return sent, nil
}

// Run drives the three schedules until ctx is done.
func (s *Service) Run(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return s.runExpiry(groupCtx) })
	group.Go(func() error { return s.runFollowUps(groupCtx) })
	group.Go(func() error { return s.runRenewals(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Notification loops stopped", "error", err)
	}
}

func (s *Service) runExpiry(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Notify.ExpiryEvery.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ExpirySweep(ctx); err != nil {
				slog.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}

// runFollowUps fires FollowUpSweep at each configured local hour.
func (s *Service) runFollowUps(ctx context.Context) error {
	for {
		next := nextAtHours(s.now(), s.cfg.Notify.FollowUpHours)

		if err := s.sleepUntil(ctx, next); err != nil {
			return err
		}

		if _, err := s.FollowUpSweep(ctx); err != nil {
			slog.Error("Follow-up sweep failed", "error", err)
		}
	}
}

// runRenewals fires RenewalSweep once a day at the configured local hour.
func (s *Service) runRenewals(ctx context.Context) error {
	for {
		next := nextAtHours(s.now(), []int{s.cfg.Notify.RenewalHour})

		if err := s.sleepUntil(ctx, next); err != nil {
			return err
		}

		if _, err := s.RenewalSweep(ctx); err != nil {
			slog.Error("Renewal sweep failed", "error", err)
		}
	}
}

func (s *Service) sleepUntil(ctx context.Context, at time.Time) error {
	timer := time.NewTimer(at.Sub(s.now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pause spaces consecutive outbound notifications.
func (s *Service) pause(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.Notify.SendDelay.Std())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextAtHours returns the earliest moment strictly after now whose local hour
// is one of hours, at the top of that hour.
func nextAtHours(now time.Time, hours []int) time.Time {
	sorted := make([]int, len(hours))
	copy(sorted, hours)
	sort.Ints(sorted)

	for _, hour := range sorted {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}

	first := sorted[0]
	tomorrow := now.AddDate(0, 0, 1)

	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first, 0, 0, 0, now.Location())
}
