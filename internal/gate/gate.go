// Package gate decides what a route renders for a given auth snapshot. Evaluate
// is a pure function with no hidden state, which keeps the whole decision table
// unit-testable in isolation.
package gate

import "github.com/ardev/dealflow-be/internal/models"

// Requirement is what a route demands before rendering its content.
type Requirement int

const (
	// RequireSession demands an authenticated identity.
	RequireSession Requirement = iota
	// RequireSubscription additionally demands an entitled subscription.
	RequireSubscription
)

// Kind classifies a gating decision.
type Kind int

const (
	// RenderPlaceholder shows a neutral placeholder while auth state is still
	// resolving; guessing here would flash the wrong content or redirect
	// prematurely.
	RenderPlaceholder Kind = iota
	// RenderContent renders the protected route.
	RenderContent
	// Redirect sends the visitor to Decision.Target.
	Redirect
)

// Redirect targets.
const (
	PublicEntryPoint  = "/"
	PlanSelectionPage = "/billing"
)

// Decision is the outcome of gating a route.
type Decision struct {
	Kind   Kind
	Target string
}

// Evaluate gates a route against the snapshot. An entitlement of "unknown" has
// already been folded into IsSubscribed=false by the bootstrapper, so denial is
// the conservative answer when entitlement could not be confirmed.
func Evaluate(snapshot models.AuthSnapshot, req Requirement) Decision {
	if snapshot.IsInitializing {
		return Decision{Kind: RenderPlaceholder}
	}
	if snapshot.User == nil {
		return Decision{Kind: Redirect, Target: PublicEntryPoint}
	}
	if req == RequireSubscription && !snapshot.IsSubscribed {
		return Decision{Kind: Redirect, Target: PlanSelectionPage}
	}
	return Decision{Kind: RenderContent}
}
