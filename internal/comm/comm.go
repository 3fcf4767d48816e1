package comm

import "time"

// PaymentEvent reports a billing decision or ledger mutation on the event
// bus. Consumers (marketing, reconciliation tooling) subscribe to
// billing.events; delivery is best effort.
type PaymentEvent struct {
	Type        string    `json:"type"` // e.g. "access_check", "charge", "purchase_recorded"
	UserID      string    `json:"user_id"`
	GameID      string    `json:"game_id"`
	Status      string    `json:"status"`
	Method      string    `json:"method,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	InstanceId  string    `json:"instance_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Description string    `json:"description,omitempty"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type ServiceShutdown struct {
	ID string `json:"id"` // service id
}
