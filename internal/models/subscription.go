package models

import "time"

// Subscription statuses reported by the billing provider.
const (
	SubscriptionActive    = "active"
	SubscriptionTrialing  = "trialing"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionPaid      = "paid"
	SubscriptionRefunded  = "refunded"
	SubscriptionUnknown   = "unknown"
)

// Subscription is the billing provider's record for a user, keyed remotely by
// the provider's subscription id.
type Subscription struct {
	UserID                 string     `json:"user_id"`
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
	ProviderOrderID        string     `json:"provider_order_id,omitempty"`
	ProviderProductID      string     `json:"provider_product_id,omitempty"`
	ProviderVariantID      string     `json:"provider_variant_id,omitempty"`
	Status                 string     `json:"status"`
	ProductName            string     `json:"product_name,omitempty"`
	VariantName            string     `json:"variant_name,omitempty"`
	RenewsAt               *time.Time `json:"renews_at,omitempty"`
	EndsAt                 *time.Time `json:"ends_at,omitempty"`
	TrialEndsAt            *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Entitled reports whether the subscription grants access. past_due still
// counts so customers keep access during the payment grace period.
func (s Subscription) Entitled() bool {
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue:
		return true
	}
	return false
}
