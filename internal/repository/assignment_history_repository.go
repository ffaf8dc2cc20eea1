package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// AssignmentHistoryRepository appends immutable owner-change records.
type AssignmentHistoryRepository interface {
	Create(ctx context.Context, record *domain.AssignmentRecord) error
	ListByLead(ctx context.Context, leadID string, limit int) ([]domain.AssignmentRecord, error)
}

type assignmentHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentHistoryRepository instantiates the repository.
func NewAssignmentHistoryRepository(pool *pgxpool.Pool) AssignmentHistoryRepository {
	return &assignmentHistoryRepository{pool: pool}
}

func (r *assignmentHistoryRepository) Create(ctx context.Context, record *domain.AssignmentRecord) error {
	const query = `
        INSERT INTO assignment_history (lead_id, queue_id, old_owner_id, new_owner_id, source)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.LeadID,
		record.QueueID,
		record.OldOwnerID,
		record.NewOwnerID,
		record.Source,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *assignmentHistoryRepository) ListByLead(ctx context.Context, leadID string, limit int) ([]domain.AssignmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, lead_id, queue_id, old_owner_id, new_owner_id, source, created_at
        FROM assignment_history
        WHERE lead_id=$1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRecord
	for rows.Next() {
		var record domain.AssignmentRecord
		if err := rows.Scan(
			&record.ID,
			&record.LeadID,
			&record.QueueID,
			&record.OldOwnerID,
			&record.NewOwnerID,
			&record.Source,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
