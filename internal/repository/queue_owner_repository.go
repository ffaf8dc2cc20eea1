package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// QueueOwnerRepository persists sticky queue-scoped ownership.
type QueueOwnerRepository interface {
	Get(ctx context.Context, leadID, queueID string) (*domain.QueueOwner, error)
	// InsertIfAbsent inserts the candidate as owner unless a row already
	// exists, and returns the surviving row either way. The insert uses
	// ON CONFLICT DO NOTHING so an existing owner is never overwritten.
	InsertIfAbsent(ctx context.Context, leadID, queueID, userID string) (*domain.QueueOwner, error)
}

type queueOwnerRepository struct {
	pool *pgxpool.Pool
}

// NewQueueOwnerRepository instantiates the repository.
func NewQueueOwnerRepository(pool *pgxpool.Pool) QueueOwnerRepository {
	return &queueOwnerRepository{pool: pool}
}

func (r *queueOwnerRepository) Get(ctx context.Context, leadID, queueID string) (*domain.QueueOwner, error) {
	const query = `
        SELECT lead_id, queue_id, user_id, assigned_at
        FROM lead_queue_owners WHERE lead_id=$1 AND queue_id=$2`
	var owner domain.QueueOwner
	if err := r.pool.QueryRow(ctx, query, leadID, queueID).Scan(
		&owner.LeadID,
		&owner.QueueID,
		&owner.UserID,
		&owner.AssignedAt,
	); err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *queueOwnerRepository) InsertIfAbsent(ctx context.Context, leadID, queueID, userID string) (*domain.QueueOwner, error) {
	const insert = `
        INSERT INTO lead_queue_owners (lead_id, queue_id, user_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (lead_id, queue_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, leadID, queueID, userID); err != nil {
		return nil, err
	}
	// Read-back covers both outcomes: our insert won, or a concurrent or
	// prior owner already held the row.
	return r.Get(ctx, leadID, queueID)
}
