package session

import "time"

// State identifies a position in the conversation flow.
type State string

const (
	StateInitial        State = "initial"
	StateMenu           State = "menu"
	StateViewingPlans   State = "viewing_plans"
	StateRequestingTest State = "requesting_test"
	StateCollectingName State = "collecting_name"
	StateSelectingPlan  State = "selecting_plan"
	StatePaymentInfo    State = "payment_info"
	StateSupport        State = "support"
	StateHumanTransfer  State = "human_transfer"
	StateFeedback       State = "feedback"
)

// All lists every conversation state.
func All() []State {
	return []State{
		StateInitial,
		StateMenu,
		StateViewingPlans,
		StateRequestingTest,
		StateCollectingName,
		StateSelectingPlan,
		StatePaymentInfo,
		StateSupport,
		StateHumanTransfer,
		StateFeedback,
	}
}

// Session is the ephemeral per-correspondent conversation state. A session
// whose LastActivityAt is older than the TTL is logically absent: reads
// replace it with a fresh one instead of resuming it.
type Session struct {
	Current        State
	Previous       State
	Context        map[string]any
	LastActivityAt time.Time
	Interactions   int
}

// Stats is a point-in-time summary of the live sessions.
type Stats struct {
	TotalSessions     int           `json:"total_sessions"`
	TotalInteractions int           `json:"total_interactions"`
	ByState           map[State]int `json:"by_state"`
}
