package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// PipelineRepository reads pipelines and pipeline-level lead permissions.
type PipelineRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Pipeline, error)
	// ListLeadManagerIDs returns active users with can_manage_leads for the
	// pipeline, ascending by user id.
	ListLeadManagerIDs(ctx context.Context, pipelineID string) ([]string, error)
}

type pipelineRepository struct {
	pool *pgxpool.Pool
}

// NewPipelineRepository instantiates the repository.
func NewPipelineRepository(pool *pgxpool.Pool) PipelineRepository {
	return &pipelineRepository{pool: pool}
}

func (r *pipelineRepository) GetByID(ctx context.Context, id string) (*domain.Pipeline, error) {
	const query = `
        SELECT id, tenant_id, name, is_visible, first_stage_id, created_at, updated_at
        FROM pipelines WHERE id=$1`
	var pipeline domain.Pipeline
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&pipeline.ID,
		&pipeline.TenantID,
		&pipeline.Name,
		&pipeline.IsVisible,
		&pipeline.FirstStageID,
		&pipeline.CreatedAt,
		&pipeline.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

func (r *pipelineRepository) ListLeadManagerIDs(ctx context.Context, pipelineID string) ([]string, error) {
	const query = `
        SELECT u.id
        FROM pipeline_permissions pp
        JOIN users u ON u.id = pp.user_id
        WHERE pp.pipeline_id=$1 AND pp.can_manage_leads=TRUE AND u.active_flag=TRUE
        ORDER BY u.id`
	rows, err := r.pool.Query(ctx, query, pipelineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
