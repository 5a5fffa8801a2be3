package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ardev/dealflow-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// DealStore is the remote authority for deals: row-level operations filtered by
// equality predicates, with owner id on every write as a cross-tenant guard.
type DealStore interface {
	ListByOwner(ctx context.Context, userID string) ([]models.Deal, error)
	Insert(ctx context.Context, deal models.Deal) (models.Deal, error)
	Update(ctx context.Context, dealID, userID string, deal models.Deal) error
	UpdateStatus(ctx context.Context, dealID, userID, status string) error
	Delete(ctx context.Context, dealID, userID string) error
}

// SubscriptionStore persists billing-provider subscription records.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub models.Subscription) error
	MarkCancelled(ctx context.Context, providerSubscriptionID, status string, endsAt *time.Time) error
	LatestActiveByUser(ctx context.Context, userID string) (models.Subscription, error)
}

// UserStore captures persistence operations needed by the session authority.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}
