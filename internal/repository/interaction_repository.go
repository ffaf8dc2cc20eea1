package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// InteractionRepository reads and records contact touchpoints per channel.
type InteractionRepository interface {
	Latest(ctx context.Context, contactID, channelID string) (*domain.ContactInteraction, error)
	Record(ctx context.Context, interaction *domain.ContactInteraction) error
}

type interactionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository instantiates the repository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{pool: pool}
}

func (r *interactionRepository) Latest(ctx context.Context, contactID, channelID string) (*domain.ContactInteraction, error) {
	const query = `
        SELECT contact_id, channel_id, lead_id, owner_id, queue_id, occurred_at
        FROM contact_interactions
        WHERE contact_id=$1 AND channel_id=$2
        ORDER BY occurred_at DESC
        LIMIT 1`
	var interaction domain.ContactInteraction
	if err := r.pool.QueryRow(ctx, query, contactID, channelID).Scan(
		&interaction.ContactID,
		&interaction.ChannelID,
		&interaction.LeadID,
		&interaction.OwnerID,
		&interaction.QueueID,
		&interaction.OccurredAt,
	); err != nil {
		return nil, err
	}
	return &interaction, nil
}

func (r *interactionRepository) Record(ctx context.Context, interaction *domain.ContactInteraction) error {
	const query = `
        INSERT INTO contact_interactions (contact_id, channel_id, lead_id, owner_id, queue_id, occurred_at)
        VALUES ($1, $2, $3, $4, $5, NOW())`
	_, err := r.pool.Exec(ctx, query,
		interaction.ContactID,
		interaction.ChannelID,
		interaction.LeadID,
		interaction.OwnerID,
		interaction.QueueID,
	)
	return err
}
