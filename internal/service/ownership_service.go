package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// OwnershipService maintains sticky queue-scoped ownership. Once a lead has
// an owner in a queue that pairing never changes; a fresh round-robin pick
// is discarded in favor of the existing owner.
type OwnershipService struct {
	owners repository.QueueOwnerRepository
	logger *zap.Logger
}

// NewOwnershipService creates the service.
func NewOwnershipService(owners repository.QueueOwnerRepository, logger *zap.Logger) *OwnershipService {
	return &OwnershipService{owners: owners, logger: logger}
}

// EnsureOwner records candidateID as the lead's owner in the queue unless an
// owner already exists, and returns the surviving owner id plus whether it
// pre-existed. Idempotent and safe under concurrent calls.
func (s *OwnershipService) EnsureOwner(ctx context.Context, leadID, queueID, candidateID string) (string, bool, error) {
	owner, err := s.owners.InsertIfAbsent(ctx, leadID, queueID, candidateID)
	if err != nil {
		return "", false, apperrors.MapError(err)
	}
	if owner.UserID != candidateID {
		s.logger.Info("sticky queue owner kept over fresh pick",
			zap.String("lead_id", leadID),
			zap.String("queue_id", queueID),
			zap.String("owner_id", owner.UserID),
			zap.String("discarded_pick", candidateID))
		return owner.UserID, true, nil
	}
	return owner.UserID, false, nil
}

// GetQueueOwner returns the sticky owner for (lead, queue), or nil when none
// exists. Query only, no side effects.
func (s *OwnershipService) GetQueueOwner(ctx context.Context, leadID, queueID string) (*domain.QueueOwner, error) {
	owner, err := s.owners.Get(ctx, leadID, queueID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return owner, nil
}
