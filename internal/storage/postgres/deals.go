package postgres

import (
	"context"
	"errors"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

// Ensure Store satisfies the storage.DealStore interface at compile time.
var _ storage.DealStore = (*Store)(nil)

// ListByOwner fetches all deals for a user, most recently created first.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]models.Deal, error) {
	const query = `
		SELECT id, user_id, title, company, contact_name, value, status, description, tags, created_at
		FROM deals
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// Insert stores a new deal row.
func (s *Store) Insert(ctx context.Context, deal models.Deal) (models.Deal, error) {
	const query = `
		INSERT INTO deals (id, user_id, title, company, contact_name, value, status, description, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, title, company, contact_name, value, status, description, tags, created_at;
	`
	row := s.pool.QueryRow(ctx, query,
		deal.ID, deal.UserID, deal.Title, deal.Company, deal.ContactName,
		deal.Value, deal.Status, deal.Description, tagsOrEmpty(deal.Tags))
	created, err := scanDeal(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Deal{}, storage.ErrAlreadyExists
		}
		return models.Deal{}, err
	}
	return created, nil
}

// Update rewrites the editable fields of a deal, filtered by id and owner.
func (s *Store) Update(ctx context.Context, dealID, userID string, deal models.Deal) error {
	const query = `
		UPDATE deals
		SET title = $3, company = $4, contact_name = $5, value = $6, status = $7, description = $8, tags = $9
		WHERE id = $1 AND user_id = $2;
	`
	tag, err := s.pool.Exec(ctx, query,
		dealID, userID, deal.Title, deal.Company, deal.ContactName,
		deal.Value, deal.Status, deal.Description, tagsOrEmpty(deal.Tags))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateStatus changes only the status column, filtered by id and owner. The
// owner predicate guards against cross-tenant writes.
func (s *Store) UpdateStatus(ctx context.Context, dealID, userID, status string) error {
	const query = `UPDATE deals SET status = $3 WHERE id = $1 AND user_id = $2;`
	tag, err := s.pool.Exec(ctx, query, dealID, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a deal, filtered by id and owner.
func (s *Store) Delete(ctx context.Context, dealID, userID string) error {
	const query = `DELETE FROM deals WHERE id = $1 AND user_id = $2;`
	tag, err := s.pool.Exec(ctx, query, dealID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanDeal(row pgx.Row) (models.Deal, error) {
	var deal models.Deal
	err := row.Scan(&deal.ID, &deal.UserID, &deal.Title, &deal.Company, &deal.ContactName,
		&deal.Value, &deal.Status, &deal.Description, &deal.Tags, &deal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Deal{}, storage.ErrNotFound
		}
		return models.Deal{}, err
	}
	return deal, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
