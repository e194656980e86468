package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"

	"github.com/samber/do"
)

var ErrNotFound = errors.New("store: not found")

// Repository is the durable-store adapter. The engine works against it the
// same way whether it is backed by a database or by process memory; the
// memory implementation is always available as a degraded fallback.
type Repository interface {
	FindOwnerByPhone(ctx context.Context, phone string) (*Owner, error)
	SaveOwner(ctx context.Context, owner *Owner) error

	FindActiveTrialByOwner(ctx context.Context, phone string) (*TrialAccount, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// IssueTrial persists the trial account and flips the owner's
	// HasUsedTrial flag as one atomic unit.
	IssueTrial(ctx context.Context, owner *Owner, trial *TrialAccount) error
	SaveTrial(ctx context.Context, trial *TrialAccount) error

	QueryExpiredUnsent(ctx context.Context, since, until time.Time) ([]*TrialAccount, error)
	BulkMarkExpired(ctx context.Context, now time.Time) (int64, error)
	QueryExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*Owner, error)

	// AppendConversation records a message in the owner's interaction
	// history. Unknown owners are a no-op.
	AppendConversation(ctx context.Context, phone, message string, dir Direction) error
}

// New picks the repository implementation from config. A database that
// cannot be opened degrades to the in-memory store instead of failing the
// boot: durability is lost, conversations keep working.
func New(di *do.Injector) (Repository, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.DB.Driver {
	case "", "memory":
		slog.Info("Using in-memory store, data will not survive restarts")
		return NewMemory(), nil
	default:
		repo, err := NewGorm(cfg)
		if err != nil {
			slog.Error("Persistence unavailable, degrading to in-memory store",
				"driver", cfg.DB.Driver,
				"error", err,
				"telegram", true)
			return NewMemory(), nil
		}

		return repo, nil
	}
}
