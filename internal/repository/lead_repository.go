package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// LeadRepository reads leads and writes the routing columns. Lead creation
// belongs to the ingestion collaborator.
type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	UpdateOwner(ctx context.Context, leadID string, ownerID *string) error
	// UpdateRouting persists the routing columns (queue, pipeline, stage,
	// owner) written when a lead enters a queue.
	UpdateRouting(ctx context.Context, lead *domain.Lead) error
	CountByQueueOwner(ctx context.Context, queueID, userID string) (int64, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates the repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	const query = `
        SELECT id, tenant_id, contact_id, pipeline_id, stage_id, channel_id, queue_id, owner_id,
               created_at, updated_at
        FROM leads WHERE id=$1`
	var lead domain.Lead
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.TenantID,
		&lead.ContactID,
		&lead.PipelineID,
		&lead.StageID,
		&lead.ChannelID,
		&lead.QueueID,
		&lead.OwnerID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) UpdateOwner(ctx context.Context, leadID string, ownerID *string) error {
	const query = `UPDATE leads SET owner_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, ownerID, leadID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) UpdateRouting(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE leads SET queue_id=$1, pipeline_id=$2, stage_id=$3, owner_id=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		lead.QueueID,
		lead.PipelineID,
		lead.StageID,
		lead.OwnerID,
		lead.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) CountByQueueOwner(ctx context.Context, queueID, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM leads WHERE queue_id=$1 AND owner_id=$2`
	var count int64
	if err := r.pool.QueryRow(ctx, query, queueID, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
