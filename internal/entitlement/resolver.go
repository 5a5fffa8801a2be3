// Package entitlement resolves whether an identity holds a live subscription.
// Resolution queries the billing function endpoint first and falls back to the
// local subscription store, always answering within a bounded time budget.
package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
)

// Status is the tri-state outcome of a resolution. Unknown (timeout, transport
// failure) is kept distinct from Inactive so callers can tell "confirmed
// unsubscribed" from "entitlement unknown"; the routing layer folds Unknown
// into Inactive explicitly.
type Status int

const (
	Inactive Status = iota
	Active
	Unknown
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Resolver determines subscription state for an identity.
type Resolver struct {
	functionURL string
	timeout     time.Duration
	client      *http.Client
	store       storage.SubscriptionStore
}

// NewResolver builds a resolver. functionURL may be empty, in which case only
// the store fallback is consulted. A zero timeout defaults to five seconds.
func NewResolver(functionURL string, timeout time.Duration, client *http.Client, store storage.SubscriptionStore) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{functionURL: functionURL, timeout: timeout, client: client, store: store}
}

// Resolve returns the user's subscription record and its tri-state status. It
// never blocks past the configured timeout: the wait is cancelled even though
// an in-flight request may complete later and be discarded. Failures are
// logged, never returned; retry is user-triggered.
func (r *Resolver) Resolve(ctx context.Context, userID, bearerToken string) (*models.Subscription, Status) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.functionURL != "" {
		sub, err := r.fetchFromFunction(ctx, bearerToken)
		if err == nil {
			if sub == nil {
				return nil, Inactive
			}
			if sub.Entitled() {
				return sub, Active
			}
			return sub, Inactive
		}
		log.Printf("entitlement: function endpoint failed for user %s: %v", userID, err)
	}

	// A timeout exhausts the whole budget: the answer is unknown, which is not
	// the same as confirmed unsubscribed.
	if ctx.Err() != nil {
		return nil, Unknown
	}

	return r.fetchFromStore(ctx, userID)
}

// fetchFromFunction posts to the billing function endpoint with the caller's
// bearer credential attached when available. A well-formed body is the
// subscription record; an empty productInfo means no subscription.
func (r *Resolver) fetchFromFunction(ctx context.Context, bearerToken string) (*models.Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.functionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("function returned status %d", resp.StatusCode)
	}

	var body struct {
		ProductInfo *models.Subscription `json:"productInfo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.ProductInfo, nil
}

// fetchFromStore is the fallback chain's second source: the newest locally
// stored subscription still granting access.
func (r *Resolver) fetchFromStore(ctx context.Context, userID string) (*models.Subscription, Status) {
	if r.store == nil {
		return nil, Unknown
	}
	sub, err := r.store.LatestActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Inactive
		}
		log.Printf("entitlement: store lookup failed for user %s: %v", userID, err)
		return nil, Unknown
	}
	return &sub, Active
}
