package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/observability"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// ErrEmptyCandidateSet is the terminal no-candidate outcome of a selection.
var ErrEmptyCandidateSet = errors.New("empty candidate set")

// DistributionService is the round-robin selector over the assignment
// ledger. Fairness is strictly least-recently-assigned with an ascending
// user-id tie-break; there is no in-memory rotation state of any kind.
type DistributionService struct {
	ledger       repository.LedgerRepository
	users        repository.UserRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
	attempts     int
	claimTimeout time.Duration
}

// DistributionDependencies bundles collaborators.
type DistributionDependencies struct {
	LedgerRepo    repository.LedgerRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	ClaimAttempts int
	ClaimTimeout  time.Duration
}

// NewDistributionService creates the service.
func NewDistributionService(deps DistributionDependencies) *DistributionService {
	attempts := deps.ClaimAttempts
	if attempts <= 0 {
		attempts = 3
	}
	claimTimeout := deps.ClaimTimeout
	if claimTimeout <= 0 {
		claimTimeout = 5 * time.Second
	}
	return &DistributionService{
		ledger:       deps.LedgerRepo,
		users:        deps.UserRepo,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		attempts:     attempts,
		claimTimeout: claimTimeout,
	}
}

// SelectAndRecord picks the least-recently-assigned candidate in the scope
// and stamps its ledger row in the same atomic unit of work. Conflicting
// concurrent claims are retried against fresh state up to the configured
// attempt bound; exhaustion surfaces ASSIGNMENT_FAILED and leaves the lead
// unassigned rather than assigning incorrectly.
func (s *DistributionService) SelectAndRecord(ctx context.Context, scope domain.LedgerScope, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrEmptyCandidateSet
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		winner, err := s.claim(ctx, scope, candidates)
		if err == nil {
			s.metrics.RecordAssignment(scope.Key(), "assigned")
			return winner, nil
		}
		if !errors.Is(err, repository.ErrClaimConflict) {
			return "", apperrors.MapError(err)
		}
		lastErr = err
		s.logger.Debug("ledger claim conflict, retrying",
			zap.String("scope", scope.Key()),
			zap.Int("attempt", attempt))
	}

	s.metrics.RecordAssignment(scope.Key(), "conflict_exhausted")
	s.logger.Error("ledger claim retries exhausted",
		zap.String("scope", scope.Key()),
		zap.Int("candidates", len(candidates)),
		zap.Int("attempts", s.attempts))
	return "", apperrors.NewAssignmentFailed(lastErr, map[string]any{
		"scope":      scope.Key(),
		"candidates": len(candidates),
		"attempts":   s.attempts,
	})
}

// claim runs a single ledger claim under the per-claim deadline so a stuck
// advisory lock cannot hold the request hostage.
func (s *DistributionService) claim(ctx context.Context, scope domain.LedgerScope, candidates []string) (string, error) {
	claimCtx, cancel := context.WithTimeout(ctx, s.claimTimeout)
	defer cancel()
	return s.ledger.Claim(claimCtx, scope, candidates)
}

// Stats returns per-user ledger entries for a scope, joined with user names.
func (s *DistributionService) Stats(ctx context.Context, scope domain.LedgerScope) ([]domain.LedgerEntry, map[string]string, error) {
	entries, err := s.ledger.Entries(ctx, scope)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.UserID)
	}
	names := make(map[string]string, len(ids))
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	for _, user := range users {
		names[user.ID] = user.Name
	}
	return entries, names, nil
}

// Reset deletes the fairness state of a scope. Destructive administrative
// operation; normal flow never deletes ledger rows.
func (s *DistributionService) Reset(ctx context.Context, scope domain.LedgerScope, resetBy string) (int64, error) {
	deleted, err := s.ledger.ResetScope(ctx, scope)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.logger.Warn("distribution ledger reset",
		zap.String("scope", scope.Key()),
		zap.Int64("rows_deleted", deleted),
		zap.String("reset_by", resetBy))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventDistributionReset, scope.TenantID, "", events.DistributionResetPayload{
			ChannelID:   scope.ChannelID,
			QueueID:     scope.QueueID,
			RowsDeleted: deleted,
			ResetBy:     resetBy,
		}))
	}
	return deleted, nil
}
