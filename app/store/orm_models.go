package store

import "time"

type ownerRow struct {
	Phone  string `gorm:"primaryKey;size:32"`
	Name   string `gorm:"size:191"`
	Status string `gorm:"size:32;not null;index"`

	HasUsedTrial     bool `gorm:"not null"`
	TrialRequestedAt *time.Time

	SubStartDate     *time.Time
	SubEndDate       *time.Time `gorm:"index"`
	SubPaymentMethod string     `gorm:"size:32"`
	SubLastPayment   *time.Time
	SubNextPayment   *time.Time

	Notes string

	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	LastInteraction time.Time
}

func (ownerRow) TableName() string {
	return "owners"
}

func (r ownerRow) toModel() *Owner {
	owner := &Owner{
		Phone:           r.Phone,
		Name:            r.Name,
		Status:          OwnerStatus(r.Status),
		HasUsedTrial:    r.HasUsedTrial,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		LastInteraction: r.LastInteraction,
	}

	if r.TrialRequestedAt != nil {
		owner.TrialRequestedAt = *r.TrialRequestedAt
	}

	if r.SubStartDate != nil && r.SubEndDate != nil {
		owner.Subscription = &Subscription{
			StartDate:     *r.SubStartDate,
			EndDate:       *r.SubEndDate,
			PaymentMethod: r.SubPaymentMethod,
		}
		if r.SubLastPayment != nil {
			owner.Subscription.LastPayment = *r.SubLastPayment
		}
		if r.SubNextPayment != nil {
			owner.Subscription.NextPayment = *r.SubNextPayment
		}
	}

	return owner
}

func ownerRowFromModel(owner *Owner) ownerRow {
	row := ownerRow{
		Phone:           owner.Phone,
		Name:            owner.Name,
		Status:          string(owner.Status),
		HasUsedTrial:    owner.HasUsedTrial,
		Notes:           owner.Notes,
		CreatedAt:       owner.CreatedAt,
		UpdatedAt:       owner.UpdatedAt,
		LastInteraction: owner.LastInteraction,
	}

	if !owner.TrialRequestedAt.IsZero() {
		t := owner.TrialRequestedAt
		row.TrialRequestedAt = &t
	}

	if sub := owner.Subscription; sub != nil {
		start, end := sub.StartDate, sub.EndDate
		row.SubStartDate = &start
		row.SubEndDate = &end
		row.SubPaymentMethod = sub.PaymentMethod
		if !sub.LastPayment.IsZero() {
			t := sub.LastPayment
			row.SubLastPayment = &t
		}
		if !sub.NextPayment.IsZero() {
			t := sub.NextPayment
			row.SubNextPayment = &t
		}
	}

	return row
}

type trialRow struct {
	ID         string `gorm:"primaryKey;size:26"`
	OwnerPhone string `gorm:"size:32;not null;index"`

	Username string `gorm:"size:64;not null;uniqueIndex"`
	Password string `gorm:"size:64;not null"`

	ServerURL string `gorm:"size:191"`
	Port      string `gorm:"size:8"`

	Status    string    `gorm:"size:16;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`

	FollowUpAt     time.Time
	FollowUpSent   bool `gorm:"not null"`
	FollowUpSentAt *time.Time

	Converted bool `gorm:"not null"`
}

func (trialRow) TableName() string {
	return "trial_accounts"
}

func (r trialRow) toModel() *TrialAccount {
	trial := &TrialAccount{
		ID:           r.ID,
		OwnerPhone:   r.OwnerPhone,
		Username:     r.Username,
		Password:     r.Password,
		ServerURL:    r.ServerURL,
		Port:         r.Port,
		Status:       TrialStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		FollowUpAt:   r.FollowUpAt,
		FollowUpSent: r.FollowUpSent,
		Converted:    r.Converted,
	}

	if r.FollowUpSentAt != nil {
		trial.FollowUpSentAt = *r.FollowUpSentAt
	}

	return trial
}

func trialRowFromModel(trial *TrialAccount) trialRow {
	row := trialRow{
		ID:           trial.ID,
		OwnerPhone:   trial.OwnerPhone,
		Username:     trial.Username,
		Password:     trial.Password,
		ServerURL:    trial.ServerURL,
		Port:         trial.Port,
		Status:       string(trial.Status),
		CreatedAt:    trial.CreatedAt,
		ExpiresAt:    trial.ExpiresAt,
		FollowUpAt:   trial.FollowUpAt,
		FollowUpSent: trial.FollowUpSent,
		Converted:    trial.Converted,
	}

	if !trial.FollowUpSentAt.IsZero() {
		t := trial.FollowUpSentAt
		row.FollowUpSentAt = &t
	}

	return row
}

type conversationRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	OwnerPhone string `gorm:"size:32;not null;index"`
	Message    string
	Direction  string    `gorm:"size:16;not null"`
	Timestamp  time.Time `gorm:"not null"`
}

func (conversationRow) TableName() string {
	return "conversation_history"
}
