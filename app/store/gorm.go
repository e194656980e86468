package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Gorm backs the repository with sqlite or postgres.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(cfg *config.Config) (*Gorm, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.Path)
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s/%s",
			cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Database)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &Gorm{db: db}
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (g *Gorm) migrate() error {
	if err := g.db.AutoMigrate(&ownerRow{}, &trialRow{}, &conversationRow{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (g *Gorm) FindOwnerByPhone(ctx context.Context, phone string) (*Owner, error) {
	var row ownerRow
	err := g.db.WithContext(ctx).Where("phone = ?", phone).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}

	return row.toModel(), nil
}

func (g *Gorm) SaveOwner(ctx context.Context, owner *Owner) error {
	row := ownerRowFromModel(owner)
	if err := g.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save owner: %w", err)
	}
	return nil
}

func (g *Gorm) FindActiveTrialByOwner(ctx context.Context, phone string) (*TrialAccount, error) {
	var row trialRow
	err := g.db.WithContext(ctx).
		Where("owner_phone = ? AND status = ?", phone, TrialActive).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active trial: %w", err)
	}

	return row.toModel(), nil
}

func (g *Gorm) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&trialRow{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}

	return count > 0, nil
}

func (g *Gorm) IssueTrial(ctx context.Context, owner *Owner, trial *TrialAccount) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := trialRowFromModel(trial)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create trial: %w", err)
		}

		ownerRow := ownerRowFromModel(owner)
		if err := tx.Save(&ownerRow).Error; err != nil {
			return fmt.Errorf("flag owner: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("issue trial: %w", err)
	}

	return nil
}

func (g *Gorm) SaveTrial(ctx context.Context, trial *TrialAccount) error {
	row := trialRowFromModel(trial)
	if err := g.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save trial: %w", err)
	}
	return nil
}

func (g *Gorm) QueryExpiredUnsent(ctx context.Context, since, until time.Time) ([]*TrialAccount, error) {
	var rows []trialRow
	err := g.db.WithContext(ctx).
		Where("status = ? AND follow_up_sent = ? AND expires_at >= ? AND expires_at <= ?",
			TrialExpired, false, since, until).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query expired trials: %w", err)
	}

	result := make([]*TrialAccount, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}

	return result, nil
}

func (g *Gorm) BulkMarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Model(&trialRow{}).
		Where("status = ? AND expires_at < ?", TrialActive, now).
		Update("status", TrialExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("mark expired trials: %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (g *Gorm) QueryExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*Owner, error) {
	var rows []ownerRow
	err := g.db.WithContext(ctx).
		Where("status = ? AND sub_end_date >= ? AND sub_end_date <= ?", OwnerActive, from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query expiring subscriptions: %w", err)
	}

	result := make([]*Owner, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}

	return result, nil
}

func (g *Gorm) AppendConversation(ctx context.Context, phone, message string, dir Direction) error {
	var count int64
	if err := g.db.WithContext(ctx).
		Model(&ownerRow{}).
		Where("phone = ?", phone).
		Count(&count).Error; err != nil {
		return fmt.Errorf("lookup owner: %w", err)
	}
	if count == 0 {
		return nil
	}

	row := conversationRow{
		OwnerPhone: phone,
		Message:    message,
		Direction:  string(dir),
		Timestamp:  time.Now(),
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}

	err := g.db.WithContext(ctx).
		Model(&ownerRow{}).
		Where("phone = ?", phone).
		Update("last_interaction", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touch owner: %w", err)
	}

	return nil
}
