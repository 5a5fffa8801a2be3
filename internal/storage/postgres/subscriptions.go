package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

// Ensure Store satisfies the storage.SubscriptionStore interface at compile time.
var _ storage.SubscriptionStore = (*Store)(nil)

// Upsert inserts or updates a subscription keyed by the provider subscription id.
func (s *Store) Upsert(ctx context.Context, sub models.Subscription) error {
	const query = `
		INSERT INTO subscriptions (
			provider_subscription_id, user_id, provider_order_id, provider_product_id,
			provider_variant_id, status, product_name, variant_name,
			renews_at, ends_at, trial_ends_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()), NOW())
		ON CONFLICT (provider_subscription_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			provider_order_id = EXCLUDED.provider_order_id,
			provider_product_id = EXCLUDED.provider_product_id,
			provider_variant_id = EXCLUDED.provider_variant_id,
			status = EXCLUDED.status,
			product_name = EXCLUDED.product_name,
			variant_name = EXCLUDED.variant_name,
			renews_at = EXCLUDED.renews_at,
			ends_at = EXCLUDED.ends_at,
			trial_ends_at = EXCLUDED.trial_ends_at,
			updated_at = NOW();
	`
	var createdAt *time.Time
	if !sub.CreatedAt.IsZero() {
		createdAt = &sub.CreatedAt
	}
	_, err := s.pool.Exec(ctx, query,
		sub.ProviderSubscriptionID, sub.UserID, sub.ProviderOrderID, sub.ProviderProductID,
		sub.ProviderVariantID, sub.Status, sub.ProductName, sub.VariantName,
		sub.RenewsAt, sub.EndsAt, sub.TrialEndsAt, createdAt)
	return err
}

// MarkCancelled updates status and end date for an existing subscription. A nil
// endsAt means the subscription ends now.
func (s *Store) MarkCancelled(ctx context.Context, providerSubscriptionID, status string, endsAt *time.Time) error {
	const query = `
		UPDATE subscriptions
		SET status = $2, ends_at = COALESCE($3, NOW()), updated_at = NOW()
		WHERE provider_subscription_id = $1;
	`
	tag, err := s.pool.Exec(ctx, query, providerSubscriptionID, status, endsAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LatestActiveByUser returns the newest subscription still granting access for
// the user, or ErrNotFound.
func (s *Store) LatestActiveByUser(ctx context.Context, userID string) (models.Subscription, error) {
	const query = `
		SELECT provider_subscription_id, user_id, provider_order_id, provider_product_id,
			provider_variant_id, status, product_name, variant_name,
			renews_at, ends_at, trial_ends_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1;
	`
	active := []string{models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue}
	row := s.pool.QueryRow(ctx, query, userID, active)

	var sub models.Subscription
	err := row.Scan(&sub.ProviderSubscriptionID, &sub.UserID, &sub.ProviderOrderID, &sub.ProviderProductID,
		&sub.ProviderVariantID, &sub.Status, &sub.ProductName, &sub.VariantName,
		&sub.RenewsAt, &sub.EndsAt, &sub.TrialEndsAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, storage.ErrNotFound
		}
		return models.Subscription{}, err
	}
	return sub, nil
}
