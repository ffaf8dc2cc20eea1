package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/observability"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

type assignmentFixture struct {
	users      *fakeUserRepo
	pipelines  *fakePipelineRepo
	queues     *fakeQueueRepo
	leads      *fakeLeadRepo
	ledger     *fakeLedgerRepo
	owners     *fakeQueueOwnerRepo
	history    *fakeHistoryRepo
	inter      *fakeInteractionRepo
	dispatcher *recordingDispatcher
	svc        *AssignmentService
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		users:      newFakeUserRepo(),
		pipelines:  newFakePipelineRepo(),
		queues:     newFakeQueueRepo(),
		leads:      newFakeLeadRepo(),
		ledger:     newFakeLedgerRepo(),
		owners:     newFakeQueueOwnerRepo(),
		history:    &fakeHistoryRepo{},
		inter:      newFakeInteractionRepo(),
		dispatcher: &recordingDispatcher{},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	eligibility := NewEligibilityService(EligibilityDependencies{
		PipelineRepo: f.pipelines,
		QueueRepo:    f.queues,
		UserRepo:     f.users,
		Dispatcher:   f.dispatcher,
		Logger:       logger,
	})
	distribution := NewDistributionService(DistributionDependencies{
		LedgerRepo:    f.ledger,
		UserRepo:      f.users,
		Dispatcher:    f.dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		ClaimAttempts: 3,
	})
	ownership := NewOwnershipService(f.owners, logger)
	f.svc = NewAssignmentService(AssignmentDependencies{
		LeadRepo:        f.leads,
		UserRepo:        f.users,
		QueueRepo:       f.queues,
		HistoryRepo:     f.history,
		InteractionRepo: f.inter,
		Eligibility:     eligibility,
		Distribution:    distribution,
		Ownership:       ownership,
		Dispatcher:      f.dispatcher,
		Logger:          logger,
		Metrics:         metrics,
	})
	return f
}

func (f *assignmentFixture) seedSeller(id string) {
	f.users.users[id] = domain.User{ID: id, TenantID: "t1", Name: id, Role: domain.UserRoleSeller, Active: true}
}

func (f *assignmentFixture) seedLead(id string, queueID *string) domain.Lead {
	lead := domain.Lead{
		ID:         id,
		TenantID:   "t1",
		ContactID:  "contact-" + id,
		PipelineID: "p1",
		ChannelID:  "ch1",
		QueueID:    queueID,
	}
	f.leads.leads[id] = lead
	return lead
}

func TestAssignLeadSelectsAndPersists(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.seedSeller("u-b")
	f.pipelines.managers["p1"] = []string{"u-a", "u-b"}
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a", "u-b"}
	f.seedLead("lead-1", strptr("q1"))

	ownerID, source, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)
	assert.Equal(t, "u-a", ownerID)
	assert.Equal(t, domain.SourceAutoDistribute, source)

	lead, err := f.leads.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	require.NotNil(t, lead.OwnerID)
	assert.Equal(t, "u-a", *lead.OwnerID)

	owner, err := f.owners.Get(context.Background(), "lead-1", "q1")
	require.NoError(t, err)
	assert.Equal(t, "u-a", owner.UserID)

	require.Len(t, f.history.records, 1)
	assert.Equal(t, "u-a", f.history.records[0].NewOwnerID)
	assert.Nil(t, f.history.records[0].OldOwnerID)

	require.Len(t, f.inter.recorded, 1)
	assert.Equal(t, "contact-lead-1", f.inter.recorded[0].ContactID)

	published := f.dispatcher.byType(events.EventLeadOwnerAssigned)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.LeadOwnerAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, "u-a", payload.NewOwnerID)
}

func TestAssignLeadHonorsStickyOwner(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.seedSeller("u-b")
	f.pipelines.managers["p1"] = []string{"u-a", "u-b"}
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a", "u-b"}
	f.seedLead("lead-1", strptr("q1"))

	_, err := f.owners.InsertIfAbsent(context.Background(), "lead-1", "q1", "u-b")
	require.NoError(t, err)

	ownerID, source, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)
	assert.Equal(t, "u-b", ownerID)
	assert.Equal(t, domain.SourceStickyOwner, source)

	// The sticky short-circuit never touches the rotation ledger.
	entries, err := f.ledger.Entries(context.Background(), domain.LedgerScope{TenantID: "t1", ChannelID: "ch1", QueueID: "q1"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssignLeadSkipsInactiveStickyOwner(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.users.users["u-gone"] = domain.User{ID: "u-gone", TenantID: "t1", Role: domain.UserRoleSeller, Active: false}
	f.pipelines.managers["p1"] = []string{"u-a"}
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a"}
	f.seedLead("lead-1", strptr("q1"))

	_, err := f.owners.InsertIfAbsent(context.Background(), "lead-1", "q1", "u-gone")
	require.NoError(t, err)

	ownerID, source, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)
	assert.Equal(t, "u-a", ownerID)
	assert.Equal(t, domain.SourceAutoDistribute, source)

	// The fresh pick, not the inactive owner, is what gets persisted.
	lead, err := f.leads.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	require.NotNil(t, lead.OwnerID)
	assert.Equal(t, "u-a", *lead.OwnerID)

	records, err := f.history.ListByLead(context.Background(), "lead-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u-a", records[0].NewOwnerID)

	// The ownership row itself is never rewritten.
	owner, err := f.owners.Get(context.Background(), "lead-1", "q1")
	require.NoError(t, err)
	assert.Equal(t, "u-gone", owner.UserID)
}

func TestAssignLeadEmptyCandidateSet(t *testing.T) {
	f := newAssignmentFixture()
	f.seedLead("lead-1", nil)

	_, _, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "EMPTY_CANDIDATE_SET", domainErr.Code)

	lead, err := f.leads.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Nil(t, lead.OwnerID)

	published := f.dispatcher.byType(events.EventLeadNeedsAttention)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.LeadNeedsAttentionPayload)
	require.True(t, ok)
	assert.Equal(t, "no eligible candidates", payload.Reason)
}

func TestAssignLeadUnknownLead(t *testing.T) {
	f := newAssignmentFixture()

	_, _, err := f.svc.AssignLead(context.Background(), "missing", nil, domain.SourceAutoDistribute)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAssignLeadRotatesAcrossLeads(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.seedSeller("u-b")
	f.pipelines.managers["p1"] = []string{"u-a", "u-b"}
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a", "u-b"}

	var got []string
	for _, id := range []string{"lead-1", "lead-2", "lead-3", "lead-4"} {
		f.seedLead(id, strptr("q1"))
		ownerID, _, err := f.svc.AssignLead(context.Background(), id, nil, domain.SourceAutoDistribute)
		require.NoError(t, err)
		got = append(got, ownerID)
	}
	assert.Equal(t, []string{"u-a", "u-b", "u-a", "u-b"}, got)
}

func TestHistoryListsNewestFirst(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.seedSeller("u-b")
	f.pipelines.managers["p1"] = []string{"u-a", "u-b"}
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a", "u-b"}
	f.seedLead("lead-1", strptr("q1"))

	_, _, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)
	_, _, err = f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)

	records, err := f.svc.History(context.Background(), "lead-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Second assignment hit the sticky owner and is the newest record.
	assert.Equal(t, domain.SourceStickyOwner, records[0].Source)
	assert.Equal(t, domain.SourceAutoDistribute, records[1].Source)
}

func TestQueueWorkloadCountsOwnedLeads(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.seedSeller("u-b")
	f.queues.queues["q1"] = domain.Queue{ID: "q1", ChannelID: "ch1", PipelineID: "p1", AutoDistribute: true, IsActive: true}
	f.queues.members["q1"] = []string{"u-a", "u-b"}

	lead := f.seedLead("lead-1", strptr("q1"))
	lead.OwnerID = strptr("u-a")
	f.leads.leads["lead-1"] = lead

	loads, err := f.svc.QueueWorkload(context.Background(), "q1")
	require.NoError(t, err)
	require.Len(t, loads, 2)

	byUser := map[string]int64{}
	for _, l := range loads {
		byUser[l.Member.UserID] = l.OwnedLeads
	}
	assert.Equal(t, int64(1), byUser["u-a"])
	assert.Zero(t, byUser["u-b"])
}

func TestAssignLeadRecordsInteractionForReturnRouting(t *testing.T) {
	f := newAssignmentFixture()
	f.seedSeller("u-a")
	f.pipelines.managers["p1"] = []string{"u-a"}
	f.seedLead("lead-1", nil)

	before := time.Now()
	_, _, err := f.svc.AssignLead(context.Background(), "lead-1", nil, domain.SourceAutoDistribute)
	require.NoError(t, err)

	latest, err := f.inter.Latest(context.Background(), "contact-lead-1", "ch1")
	require.NoError(t, err)
	require.NotNil(t, latest.OwnerID)
	assert.Equal(t, "u-a", *latest.OwnerID)
	assert.False(t, latest.OccurredAt.Before(before))
}
