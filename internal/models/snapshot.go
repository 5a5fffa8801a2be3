package models

// AuthSnapshot is the single coherent view of identity and entitlement the rest
// of the app gates on. It is replaced atomically on every session transition and
// is never partially mutated mid-transition.
type AuthSnapshot struct {
	User           *User         `json:"user,omitempty"`
	SessionValid   bool          `json:"session_valid"`
	Subscription   *Subscription `json:"subscription,omitempty"`
	IsSubscribed   bool          `json:"is_subscribed"`
	IsInitializing bool          `json:"is_initializing"`
}
