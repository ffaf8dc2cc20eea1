package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/observability"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// AssignmentService orchestrates lead ownership: eligibility, round-robin
// selection, sticky queue ownership and the resulting lead/audit writes.
type AssignmentService struct {
	leads        repository.LeadRepository
	users        repository.UserRepository
	queues       repository.QueueRepository
	history      repository.AssignmentHistoryRepository
	interactions repository.InteractionRepository
	eligibility  *EligibilityService
	distribution *DistributionService
	ownership    *OwnershipService
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	LeadRepo        repository.LeadRepository
	UserRepo        repository.UserRepository
	QueueRepo       repository.QueueRepository
	HistoryRepo     repository.AssignmentHistoryRepository
	InteractionRepo repository.InteractionRepository
	Eligibility     *EligibilityService
	Distribution    *DistributionService
	Ownership       *OwnershipService
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		leads:        deps.LeadRepo,
		users:        deps.UserRepo,
		queues:       deps.QueueRepo,
		history:      deps.HistoryRepo,
		interactions: deps.InteractionRepo,
		eligibility:  deps.Eligibility,
		distribution: deps.Distribution,
		ownership:    deps.Ownership,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
	}
}

// AssignLead gives the lead an owner and reports the source that actually
// decided it. Within a queue scope an existing sticky owner short-circuits
// selection; otherwise the round-robin selector picks from the freshly
// resolved candidate set. Lead.owner_id follows the assignment (the lead's
// pipeline-level owner tracks its current queue).
func (s *AssignmentService) AssignLead(ctx context.Context, leadID string, queueID *string, source domain.AssignmentSource) (string, domain.AssignmentSource, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", source, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return "", source, apperrors.MapError(err)
	}

	scopeQueue := queueID
	if scopeQueue == nil {
		scopeQueue = lead.QueueID
	}

	if scopeQueue != nil {
		ownerID, ok, err := s.stickyOwner(ctx, lead, *scopeQueue)
		if err != nil {
			return "", source, err
		}
		if ok {
			return ownerID, domain.SourceStickyOwner, s.finishAssignment(ctx, lead, scopeQueue, ownerID, domain.SourceStickyOwner)
		}
	}

	candidates, err := s.eligibility.Resolve(ctx, lead.TenantID, lead.PipelineID, scopeQueue)
	if err != nil {
		return "", source, err
	}

	scope := ledgerScope(lead, scopeQueue)
	if len(candidates) == 0 {
		return "", source, s.flagUnassignable(ctx, lead, scopeQueue, "no eligible candidates")
	}

	winner, err := s.distribution.SelectAndRecord(ctx, scope, candidates)
	if err != nil {
		if err == ErrEmptyCandidateSet {
			return "", source, s.flagUnassignable(ctx, lead, scopeQueue, "no eligible candidates")
		}
		return "", source, err
	}

	ownerID := winner
	if scopeQueue != nil {
		final, existed, err := s.ownership.EnsureOwner(ctx, lead.ID, *scopeQueue, winner)
		if err != nil {
			return "", source, err
		}
		if existed {
			// The pre-existing sticky row wins only while its user can
			// still take leads; an inactive one keeps the row but the
			// fresh pick takes lead-level ownership.
			adopt := final == winner
			if !adopt {
				adopt, err = s.userActive(ctx, final)
				if err != nil {
					return "", source, err
				}
			}
			if adopt {
				s.metrics.RecordAssignment(scope.Key(), "sticky")
				source = domain.SourceStickyOwner
				ownerID = final
			}
		}
	}

	return ownerID, source, s.finishAssignment(ctx, lead, scopeQueue, ownerID, source)
}

// stickyOwner returns the existing active queue owner when one exists.
// An inactive sticky owner is skipped (the row itself is never rewritten)
// and a fresh selection proceeds for the lead-level owner.
func (s *AssignmentService) stickyOwner(ctx context.Context, lead *domain.Lead, queueID string) (string, bool, error) {
	owner, err := s.ownership.GetQueueOwner(ctx, lead.ID, queueID)
	if err != nil || owner == nil {
		return "", false, err
	}
	user, err := s.users.GetByID(ctx, owner.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, apperrors.MapError(err)
	}
	if !user.Active {
		s.logger.Warn("sticky queue owner inactive, selecting fresh owner for lead",
			zap.String("lead_id", lead.ID),
			zap.String("queue_id", queueID),
			zap.String("owner_id", owner.UserID))
		return "", false, nil
	}
	return owner.UserID, true, nil
}

func (s *AssignmentService) userActive(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return user.Active, nil
}

func (s *AssignmentService) finishAssignment(ctx context.Context, lead *domain.Lead, queueID *string, ownerID string, source domain.AssignmentSource) error {
	oldOwner := lead.OwnerID
	if oldOwner == nil || *oldOwner != ownerID {
		if err := s.leads.UpdateOwner(ctx, lead.ID, &ownerID); err != nil {
			return apperrors.MapError(err)
		}
	}
	lead.OwnerID = &ownerID

	if err := s.history.Create(ctx, &domain.AssignmentRecord{
		LeadID:     lead.ID,
		QueueID:    queueID,
		OldOwnerID: oldOwner,
		NewOwnerID: ownerID,
		Source:     source,
	}); err != nil {
		return apperrors.MapError(err)
	}

	if err := s.interactions.Record(ctx, &domain.ContactInteraction{
		ContactID: lead.ContactID,
		ChannelID: lead.ChannelID,
		LeadID:    lead.ID,
		OwnerID:   &ownerID,
		QueueID:   queueID,
	}); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("lead owner assigned",
		zap.String("lead_id", lead.ID),
		zap.String("owner_id", ownerID),
		zap.String("source", string(source)))

	s.publish(ctx, events.New(events.EventLeadOwnerAssigned, lead.TenantID, lead.ID, events.LeadOwnerAssignedPayload{
		OldOwnerID: oldOwner,
		NewOwnerID: ownerID,
		QueueID:    queueID,
		ChannelID:  lead.ChannelID,
		Source:     source,
	}))
	return nil
}

// flagUnassignable leaves the lead without an owner and makes the outcome
// observable rather than silent.
func (s *AssignmentService) flagUnassignable(ctx context.Context, lead *domain.Lead, queueID *string, reason string) error {
	scope := ledgerScope(lead, queueID)
	s.metrics.RecordAssignment(scope.Key(), "empty")
	s.logger.Warn("lead left unassigned: empty candidate set",
		zap.String("lead_id", lead.ID),
		zap.String("scope", scope.Key()),
		zap.String("reason", reason))
	s.publish(ctx, events.New(events.EventLeadNeedsAttention, lead.TenantID, lead.ID, events.LeadNeedsAttentionPayload{
		ChannelID:  lead.ChannelID,
		PipelineID: lead.PipelineID,
		QueueID:    queueID,
		Reason:     reason,
	}))
	return apperrors.NewEmptyCandidateSet(map[string]any{
		"lead_id":     lead.ID,
		"channel_id":  lead.ChannelID,
		"pipeline_id": lead.PipelineID,
	})
}

// History returns the most recent owner changes for a lead, newest first.
func (s *AssignmentService) History(ctx context.Context, leadID string, limit int) ([]domain.AssignmentRecord, error) {
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, apperrors.MapError(err)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.history.ListByLead(ctx, leadID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// MemberLoad pairs a queue member with its current owned-lead count.
type MemberLoad struct {
	Member     domain.QueueMember
	UserName   string
	OwnedLeads int64
}

// QueueWorkload reports how many leads each member of the queue currently
// owns. Informational only; selection never consults these counts.
func (s *AssignmentService) QueueWorkload(ctx context.Context, queueID string) ([]MemberLoad, error) {
	if _, err := s.queues.GetByID(ctx, queueID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("queue", map[string]any{"queue_id": queueID})
		}
		return nil, apperrors.MapError(err)
	}

	members, err := s.queues.ListMembers(ctx, queueID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	loads := make([]MemberLoad, 0, len(members))
	for _, m := range members {
		count, err := s.leads.CountByQueueOwner(ctx, queueID, m.UserID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		loads = append(loads, MemberLoad{Member: m, UserName: names[m.UserID], OwnedLeads: count})
	}
	return loads, nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ledgerScope(lead *domain.Lead, queueID *string) domain.LedgerScope {
	scope := domain.LedgerScope{TenantID: lead.TenantID, ChannelID: lead.ChannelID}
	if queueID != nil {
		scope.QueueID = *queueID
	}
	return scope
}
