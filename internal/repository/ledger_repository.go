package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// ErrClaimConflict marks a retryable collision between concurrent claims on
// the same scope. Callers re-read fresh state and try again.
var ErrClaimConflict = errors.New("ledger claim conflict")

// LedgerRepository persists the per-scope fairness state.
type LedgerRepository interface {
	// Claim atomically picks the least-recently-assigned candidate in the
	// scope and stamps its ledger row, in a single unit of work. Candidates
	// without a ledger row sort first; ties break on ascending user id.
	Claim(ctx context.Context, scope domain.LedgerScope, candidates []string) (string, error)
	Entries(ctx context.Context, scope domain.LedgerScope) ([]domain.LedgerEntry, error)
	// ResetScope deletes every ledger row in the scope. Destructive; only the
	// explicit administrative reset operation may call it.
	ResetScope(ctx context.Context, scope domain.LedgerScope) (int64, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository instantiates the repository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) Claim(ctx context.Context, scope domain.LedgerScope, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", pgx.ErrNoRows
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", mapClaimError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serializes claims per scope; unrelated tenants/channels/queues hash to
	// different locks and never contend.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, scope.Key()); err != nil {
		return "", mapClaimError(err)
	}

	const selectQuery = `
        SELECT c.user_id
        FROM unnest($4::text[]) AS c(user_id)
        LEFT JOIN assignment_ledger l
            ON l.tenant_id = $1 AND l.channel_id = $2 AND l.queue_id = $3 AND l.user_id = c.user_id
        ORDER BY l.last_assigned_at ASC NULLS FIRST, c.user_id ASC
        LIMIT 1`

	var winner string
	if err := tx.QueryRow(ctx, selectQuery, scope.TenantID, scope.ChannelID, scope.QueueID, candidates).Scan(&winner); err != nil {
		return "", mapClaimError(err)
	}

	// clock_timestamp() rather than now(): the transaction may have queued on
	// the advisory lock, and stamps must strictly follow claim order.
	const upsertQuery = `
        INSERT INTO assignment_ledger (tenant_id, user_id, channel_id, queue_id, last_assigned_at)
        VALUES ($1, $2, $3, $4, clock_timestamp())
        ON CONFLICT (tenant_id, user_id, channel_id, queue_id)
        DO UPDATE SET last_assigned_at = EXCLUDED.last_assigned_at`

	if _, err := tx.Exec(ctx, upsertQuery, scope.TenantID, winner, scope.ChannelID, scope.QueueID); err != nil {
		return "", mapClaimError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", mapClaimError(err)
	}
	return winner, nil
}

func (r *ledgerRepository) Entries(ctx context.Context, scope domain.LedgerScope) ([]domain.LedgerEntry, error) {
	const query = `
        SELECT tenant_id, user_id, channel_id, queue_id, last_assigned_at
        FROM assignment_ledger
        WHERE tenant_id = $1 AND channel_id = $2 AND ($3 = '' OR queue_id = $3)
        ORDER BY last_assigned_at ASC`

	rows, err := r.pool.Query(ctx, query, scope.TenantID, scope.ChannelID, scope.QueueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.TenantID, &entry.UserID, &entry.ChannelID, &entry.QueueID, &entry.LastAssignedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) ResetScope(ctx context.Context, scope domain.LedgerScope) (int64, error) {
	const query = `
        DELETE FROM assignment_ledger
        WHERE tenant_id = $1 AND channel_id = $2 AND ($3 = '' OR queue_id = $3)`

	cmd, err := r.pool.Exec(ctx, query, scope.TenantID, scope.ChannelID, scope.QueueID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func mapClaimError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", ErrClaimConflict, pgErr.Code)
		}
	}
	return err
}
