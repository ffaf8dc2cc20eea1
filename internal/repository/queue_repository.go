package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// QueueRepository reads queue configuration and membership.
type QueueRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	ListActiveForChannel(ctx context.Context, channelID string) ([]domain.Queue, error)
	FindByMenuOption(ctx context.Context, channelID string, option int) (*domain.Queue, error)
	FindByLabel(ctx context.Context, channelID, text string) (*domain.Queue, error)
	// ListActiveMemberIDs returns active members whose user is also active,
	// ascending by user id.
	ListActiveMemberIDs(ctx context.Context, queueID string) ([]string, error)
	ListMembers(ctx context.Context, queueID string) ([]domain.QueueMember, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates the repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

const queueColumns = `id, tenant_id, channel_id, pipeline_id, name, menu_option, menu_label,
               welcome_message, auto_distribute, is_active, created_at, updated_at`

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *queueRepository) ListActiveForChannel(ctx context.Context, channelID string) ([]domain.Queue, error) {
	query := `SELECT ` + queueColumns + `
        FROM queues WHERE channel_id=$1 AND is_active=TRUE
        ORDER BY menu_option`
	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueues(rows)
}

func (r *queueRepository) FindByMenuOption(ctx context.Context, channelID string, option int) (*domain.Queue, error) {
	query := `SELECT ` + queueColumns + `
        FROM queues WHERE channel_id=$1 AND menu_option=$2 AND is_active=TRUE`
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, channelID, option).Scan(queueFields(&queue)...); err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) FindByLabel(ctx context.Context, channelID, text string) (*domain.Queue, error) {
	query := `SELECT ` + queueColumns + `
        FROM queues
        WHERE channel_id=$1 AND is_active=TRUE
          AND (LOWER(menu_label) LIKE $2 OR LOWER(name) LIKE $2)
        ORDER BY menu_option
        LIMIT 1`
	pattern := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, channelID, pattern).Scan(queueFields(&queue)...); err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) ListActiveMemberIDs(ctx context.Context, queueID string) ([]string, error) {
	const query = `
        SELECT u.id
        FROM queue_members qm
        JOIN users u ON u.id = qm.user_id
        WHERE qm.queue_id=$1 AND qm.is_active=TRUE AND u.active_flag=TRUE
        ORDER BY u.id`
	rows, err := r.pool.Query(ctx, query, queueID)
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

func (r *queueRepository) ListMembers(ctx context.Context, queueID string) ([]domain.QueueMember, error) {
	const query = `
        SELECT queue_id, user_id, is_active, priority, created_at, updated_at
        FROM queue_members WHERE queue_id=$1
        ORDER BY priority DESC, user_id`
	rows, err := r.pool.Query(ctx, query, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QueueMember
	for rows.Next() {
		var member domain.QueueMember
		if err := rows.Scan(
			&member.QueueID,
			&member.UserID,
			&member.IsActive,
			&member.Priority,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *queueRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Queue, error) {
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, arg).Scan(queueFields(&queue)...); err != nil {
		return nil, err
	}
	return &queue, nil
}

func queueFields(q *domain.Queue) []any {
	return []any{
		&q.ID,
		&q.TenantID,
		&q.ChannelID,
		&q.PipelineID,
		&q.Name,
		&q.MenuOption,
		&q.MenuLabel,
		&q.WelcomeMessage,
		&q.AutoDistribute,
		&q.IsActive,
		&q.CreatedAt,
		&q.UpdatedAt,
	}
}

func scanQueues(rows pgx.Rows) ([]domain.Queue, error) {
	var result []domain.Queue
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(queueFields(&queue)...); err != nil {
			return nil, err
		}
		result = append(result, queue)
	}
	return result, rows.Err()
}
