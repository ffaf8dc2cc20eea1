package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// ChannelRepository reads channel configuration.
type ChannelRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository instantiates the repository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	const query = `
        SELECT id, tenant_id, name, return_timeout_hours, queue_menu_enabled,
               menu_header_text, menu_invalid_text, created_at, updated_at
        FROM channels WHERE id=$1`
	var channel domain.Channel
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&channel.ID,
		&channel.TenantID,
		&channel.Name,
		&channel.ReturnTimeoutHours,
		&channel.QueueMenuEnabled,
		&channel.MenuHeaderText,
		&channel.MenuInvalidText,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &channel, nil
}
