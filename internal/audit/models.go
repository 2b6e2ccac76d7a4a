package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Amount    uint64    `json:"amount,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Action names the domain operation that produced an event.
type Action string

const (
	ActionRegistryInitialized Action = "registry_initialized"
	ActionReportSubmitted     Action = "report_submitted"
	ActionReportUpdated       Action = "report_updated"
	ActionConfigInitialized   Action = "subscription_config_initialized"
	ActionSubscriptionCreated Action = "subscription_created"
	ActionSubscriptionRenewed Action = "subscription_renewed"
	ActionPricingUpdated      Action = "pricing_updated"
)
