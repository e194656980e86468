package store

import "time"

type OwnerStatus string

const (
	OwnerLead      OwnerStatus = "lead"
	OwnerTrial     OwnerStatus = "trial"
	OwnerActive    OwnerStatus = "active"
	OwnerInactive  OwnerStatus = "inactive"
	OwnerCancelled OwnerStatus = "cancelled"
)

type TrialStatus string

const (
	TrialActive    TrialStatus = "active"
	TrialExpired   TrialStatus = "expired"
	TrialCancelled TrialStatus = "cancelled"
)

type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// Owner is the durable profile behind a correspondent phone number.
type Owner struct {
	Phone  string
	Name   string
	Status OwnerStatus

	// HasUsedTrial is write-once: once true it never reverts, even if the
	// trial record itself is deleted later.
	HasUsedTrial     bool
	TrialRequestedAt time.Time

	Subscription *Subscription
	Notes        string

	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastInteraction time.Time
}

type Subscription struct {
	StartDate     time.Time
	EndDate       time.Time
	PaymentMethod string
	LastPayment   time.Time
	NextPayment   time.Time
}

// TrialAccount is a time-bounded trial credential. Usernames are unique
// across every account ever issued.
type TrialAccount struct {
	ID         string
	OwnerPhone string

	Username string
	Password string

	ServerURL string
	Port      string

	Status    TrialStatus
	CreatedAt time.Time
	ExpiresAt time.Time

	FollowUpAt     time.Time
	FollowUpSent   bool
	FollowUpSentAt time.Time

	Converted bool
}

func (t *TrialAccount) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TimeRemaining reports the active time left, zero when already expired.
func (t *TrialAccount) TimeRemaining(now time.Time) time.Duration {
	if remaining := t.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

type ConversationEntry struct {
	Message   string
	Direction Direction
	Timestamp time.Time
}
