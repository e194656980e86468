package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/store"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]string
	fail bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]string)}
}

func (f *fakeSender) Send(_ context.Context, recipient, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("gateway down")
	}

	f.sent[recipient] = append(f.sent[recipient], text)
	return nil
}

func (f *fakeSender) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Notify.SendDelay = config.Duration(time.Millisecond)
	return cfg
}

func newTestService(repo store.Repository, sender *fakeSender) *Service {
	return newService(testConfig(), repo, sender, func() time.Time { return base })
}

func seedExpiredTrial(t *testing.T, repo *store.Memory, id, phone string, expiredAt time.Time) {
	t.Helper()

	owner := &store.Owner{Phone: phone, Name: "Maria", Status: store.OwnerTrial, HasUsedTrial: true}
	trial := &store.TrialAccount{
		ID: id, OwnerPhone: phone, Username: "test_" + id,
		Status: store.TrialExpired, ExpiresAt: expiredAt,
		FollowUpAt: expiredAt.Add(2 * time.Hour),
	}
	if err := repo.IssueTrial(context.Background(), owner, trial); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestExpirySweepFlipsOverdueTrials(t *testing.T) {
	repo := store.NewMemory()
	svc := newTestService(repo, newFakeSender())
	ctx := context.Background()

	_ = repo.SaveTrial(ctx, &store.TrialAccount{
		ID: "a", OwnerPhone: "1", Username: "u1",
		Status: store.TrialActive, ExpiresAt: base.Add(-time.Minute),
	})
	_ = repo.SaveTrial(ctx, &store.TrialAccount{
		ID: "b", OwnerPhone: "2", Username: "u2",
		Status: store.TrialActive, ExpiresAt: base.Add(time.Hour),
	})

	count, err := svc.ExpirySweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestFollowUpSweepSendsExactlyOnce(t *testing.T) {
	repo := store.NewMemory()
	sender := newFakeSender()
	svc := newTestService(repo, sender)
	ctx := context.Background()

	seedExpiredTrial(t, repo, "t1", "5511999999991", base.Add(-3*time.Hour))
	seedExpiredTrial(t, repo, "t2", "5511999999992", base.Add(-5*time.Hour))

	sent, err := svc.FollowUpSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}

	msg := sender.sent["5511999999991"][0]
	if !strings.Contains(msg, "Olá Maria!") || !strings.Contains(msg, "teste expirou") {
		t.Errorf("follow-up = %q", msg)
	}

	// A second sweep finds nothing to do.
	sent, err = svc.FollowUpSweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if sent != 0 {
		t.Errorf("second sweep sent = %d, want 0", sent)
	}
	if sender.total() != 2 {
		t.Errorf("total sent = %d, want 2", sender.total())
	}
}

func TestFollowUpSweepSkipsOutsideWindow(t *testing.T) {
	repo := store.NewMemory()
	sender := newFakeSender()
	svc := newTestService(repo, sender)

	seedExpiredTrial(t, repo, "old", "5511999999991", base.Add(-48*time.Hour))

	sent, err := svc.FollowUpSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 0 || sender.total() != 0 {
		t.Errorf("sent = %d/%d, want nothing outside the window", sent, sender.total())
	}
}

func TestFollowUpSweepSkipsConverted(t *testing.T) {
	repo := store.NewMemory()
	sender := newFakeSender()
	svc := newTestService(repo, sender)
	ctx := context.Background()

	owner := &store.Owner{Phone: "5511999999991", Status: store.OwnerActive, HasUsedTrial: true}
	trial := &store.TrialAccount{
		ID: "conv", OwnerPhone: owner.Phone, Username: "test_conv",
		Status: store.TrialExpired, ExpiresAt: base.Add(-time.Hour), Converted: true,
	}
	if err := repo.IssueTrial(ctx, owner, trial); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sent, err := svc.FollowUpSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want converted trials skipped", sent)
	}
}

func TestFollowUpDeliveryFailureRetriesNextSweep(t *testing.T) {
	repo := store.NewMemory()
	sender := newFakeSender()
	svc := newTestService(repo, sender)
	ctx := context.Background()

	seedExpiredTrial(t, repo, "t1", "5511999999991", base.Add(-3*time.Hour))

	sender.fail = true
	if sent, err := svc.FollowUpSweep(ctx); err != nil || sent != 0 {
		t.Fatalf("failed sweep: sent=%d err=%v", sent, err)
	}

	// Gateway recovers, the trial is still unsent.
	sender.fail = false
	sent, err := svc.FollowUpSweep(ctx)
	if err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 after recovery", sent)
	}
}

func TestRenewalSweep(t *testing.T) {
	repo := store.NewMemory()
	sender := newFakeSender()
	svc := newTestService(repo, sender)
	ctx := context.Background()

	_ = repo.SaveOwner(ctx, &store.Owner{
		Phone: "5511999999991", Name: "Ana", Status: store.OwnerActive,
		Subscription: &store.Subscription{EndDate: base.Add(48 * time.Hour)},
	})
	_ = repo.SaveOwner(ctx, &store.Owner{
		Phone: "5511999999992", Status: store.OwnerActive,
		Subscription: &store.Subscription{EndDate: base.Add(300 * time.Hour)},
	})

	sent, err := svc.RenewalSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}

	msg := sender.sent["5511999999991"][0]
	if !strings.Contains(msg, "Olá Ana!") || !strings.Contains(msg, "2 dias") {
		t.Errorf("reminder = %q", msg)
	}
}

func TestNextAtHours(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		hours []int
		want  time.Time
	}{
		{
			name:  "before first slot",
			now:   time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
			hours: []int{10, 18},
			want:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "between slots",
			now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			hours: []int{10, 18},
			want:  time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:  "after last slot wraps to tomorrow",
			now:   time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC),
			hours: []int{10, 18},
			want:  time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly at slot moves to next",
			now:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			hours: []int{10, 18},
			want:  time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:  "unsorted input",
			now:   time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
			hours: []int{18, 10},
			want:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextAtHours(tc.now, tc.hours); !got.Equal(tc.want) {
				t.Errorf("nextAtHours = %v, want %v", got, tc.want)
			}
		})
	}
}
