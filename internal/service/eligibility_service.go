package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// EligibilityService computes the current candidate set for a pipeline and
// optional queue. Results are recomputed on every call, never cached.
type EligibilityService struct {
	pipelines  repository.PipelineRepository
	queues     repository.QueueRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// EligibilityDependencies bundles repositories.
type EligibilityDependencies struct {
	PipelineRepo repository.PipelineRepository
	QueueRepo    repository.QueueRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewEligibilityService creates the service.
func NewEligibilityService(deps EligibilityDependencies) *EligibilityService {
	return &EligibilityService{
		pipelines:  deps.PipelineRepo,
		queues:     deps.QueueRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Resolve returns user ids eligible for a new lead, ascending by id. With
// both a pipeline and an auto-distributing queue in scope the result is the
// intersection of pipeline permission and queue membership; users present in
// only one source are logged as a mismatch warning so operators can see the
// two lists diverging. An empty result is not an error.
func (s *EligibilityService) Resolve(ctx context.Context, tenantID, pipelineID string, queueID *string) ([]string, error) {
	pipelineSet, err := s.pipelines.ListLeadManagerIDs(ctx, pipelineID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var queueSet []string
	queueInScope := false
	if queueID != nil && *queueID != "" {
		queue, err := s.queues.GetByID(ctx, *queueID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("queue", map[string]any{"queue_id": *queueID})
			}
			return nil, apperrors.MapError(err)
		}
		if queue.AutoDistribute {
			queueInScope = true
			queueSet, err = s.queues.ListActiveMemberIDs(ctx, *queueID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	}

	if !queueInScope {
		if len(pipelineSet) == 0 {
			return s.tenantFallback(ctx, tenantID, pipelineID)
		}
		return pipelineSet, nil
	}

	effective, pipelineOnly, queueOnly := intersect(pipelineSet, queueSet)
	if len(pipelineOnly) > 0 || len(queueOnly) > 0 {
		s.logger.Warn("eligibility mismatch between pipeline permission and queue membership",
			zap.String("pipeline_id", pipelineID),
			zap.String("queue_id", *queueID),
			zap.Strings("pipeline_only", pipelineOnly),
			zap.Strings("queue_only", queueOnly))
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.New(events.EventEligibilityMismatch, tenantID, "", events.EligibilityMismatchPayload{
				PipelineID:   pipelineID,
				QueueID:      *queueID,
				PipelineOnly: pipelineOnly,
				QueueOnly:    queueOnly,
			}))
		}
	}

	if len(pipelineSet) == 0 && len(queueSet) == 0 {
		return s.tenantFallback(ctx, tenantID, pipelineID)
	}
	return effective, nil
}

// tenantFallback mirrors the legacy behavior of distributing across every
// active seller of the tenant when no scoped list yields anyone.
func (s *EligibilityService) tenantFallback(ctx context.Context, tenantID, pipelineID string) ([]string, error) {
	ids, err := s.users.ListActiveSellerIDs(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Warn("eligibility fallback to all tenant sellers",
		zap.String("tenant_id", tenantID),
		zap.String("pipeline_id", pipelineID),
		zap.Int("candidates", len(ids)))
	return ids, nil
}

// intersect assumes both inputs sorted ascending and returns the sorted
// intersection plus the members unique to each side.
func intersect(pipelineSet, queueSet []string) (both, pipelineOnly, queueOnly []string) {
	i, j := 0, 0
	for i < len(pipelineSet) && j < len(queueSet) {
		switch {
		case pipelineSet[i] == queueSet[j]:
			both = append(both, pipelineSet[i])
			i++
			j++
		case pipelineSet[i] < queueSet[j]:
			pipelineOnly = append(pipelineOnly, pipelineSet[i])
			i++
		default:
			queueOnly = append(queueOnly, queueSet[j])
			j++
		}
	}
	pipelineOnly = append(pipelineOnly, pipelineSet[i:]...)
	queueOnly = append(queueOnly, queueSet[j:]...)
	return both, pipelineOnly, queueOnly
}
