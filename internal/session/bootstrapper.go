// Package session owns the single AuthSnapshot and keeps it coherent across
// authority-pushed session changes. Every transition marks the snapshot as
// initializing before any remote work starts, so gating code never acts on a
// stale settled state.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/ardev/dealflow-be/internal/auth"
	"github.com/ardev/dealflow-be/internal/entitlement"
	"github.com/ardev/dealflow-be/internal/models"
)

// EntitlementResolver is the narrow slice of the resolver the bootstrapper needs.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userID, bearerToken string) (*models.Subscription, entitlement.Status)
}

// Bootstrapper resolves identity and entitlement into one coherent snapshot on
// startup and on every pushed session change.
type Bootstrapper struct {
	authority auth.Authority
	resolver  EntitlementResolver

	mu          sync.Mutex
	snapshot    models.AuthSnapshot
	generation  uint64
	unsubscribe func()
}

// NewBootstrapper creates a bootstrapper whose snapshot starts empty and
// initializing. Call Start to run the initial resolution and begin listening.
func NewBootstrapper(authority auth.Authority, resolver EntitlementResolver) *Bootstrapper {
	return &Bootstrapper{
		authority: authority,
		resolver:  resolver,
		snapshot:  models.AuthSnapshot{IsInitializing: true},
	}
}

// Start subscribes to authority changes and performs the initial bootstrap.
// The initial resolution runs to completion before Start returns; its wait is
// bounded by the resolver's timeout.
func (b *Bootstrapper) Start(ctx context.Context) error {
	b.unsubscribe = b.authority.Subscribe(func(session auth.Session) {
		gen := b.beginTransition()
		go b.settle(context.Background(), session, gen)
	})

	session, err := b.authority.CurrentSession(ctx)
	if err != nil {
		// Identity could not be read at all; settle as signed out rather than
		// leaving the app stuck on the placeholder.
		log.Printf("session: initial session fetch failed: %v", err)
		session = auth.Session{}
	}
	gen := b.beginTransition()
	b.settle(ctx, session, gen)
	return nil
}

// Close detaches from the authority.
func (b *Bootstrapper) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

// Snapshot returns a copy of the current auth snapshot.
func (b *Bootstrapper) Snapshot() models.AuthSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snapshot
	if snap.User != nil {
		user := *snap.User
		snap.User = &user
	}
	if snap.Subscription != nil {
		sub := *snap.Subscription
		snap.Subscription = &sub
	}
	return snap
}

// Logout asks the authority to sign out and relies on the pushed change event
// to complete the transition, which makes logout idempotent with the normal
// change path. The snapshot is marked initializing for the duration.
func (b *Bootstrapper) Logout(ctx context.Context) error {
	b.beginTransition()
	return b.authority.SignOut(ctx)
}

// RefreshSubscription re-resolves entitlement for the current identity without
// touching identity or the initializing flag. No-op when signed out.
func (b *Bootstrapper) RefreshSubscription(ctx context.Context) {
	session, err := b.authority.CurrentSession(ctx)
	if err != nil || session.User == nil {
		return
	}
	sub, status := b.resolver.Resolve(ctx, session.User.ID, session.Token)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot.User == nil || b.snapshot.User.ID != session.User.ID {
		// Identity changed while we were resolving; drop the result.
		return
	}
	b.snapshot.Subscription = sub
	b.snapshot.IsSubscribed = status == entitlement.Active
}

// beginTransition marks the snapshot as initializing and returns the new
// transition generation. Setting the flag synchronously, before any remote
// work, is what serializes transitions from the gate's point of view.
func (b *Bootstrapper) beginTransition() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.snapshot.IsInitializing = true
	return b.generation
}

// settle resolves entitlement for the session and installs the finished
// snapshot, unless a newer transition has started since gen was taken.
func (b *Bootstrapper) settle(ctx context.Context, session auth.Session, gen uint64) {
	next := models.AuthSnapshot{
		User:         session.User,
		SessionValid: session.Valid(),
	}
	if session.User != nil {
		// Entitlement failure is not fatal to the bootstrap: identity stands,
		// subscription stays nil, and the resolver has already logged.
		sub, status := b.resolver.Resolve(ctx, session.User.ID, session.Token)
		next.Subscription = sub
		next.IsSubscribed = status == entitlement.Active
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return
	}
	b.snapshot = next
}
