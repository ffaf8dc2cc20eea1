package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/repository"
)

// In-memory repository fakes used across the service tests. Each one mirrors
// the row-level behavior of its SQL counterpart, including pgx.ErrNoRows on
// absent rows.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListActiveSellerIDs(_ context.Context, tenantID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, u := range r.users {
		if u.TenantID == tenantID && u.Active && u.Role == domain.UserRoleSeller {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type fakePipelineRepo struct {
	pipelines map[string]domain.Pipeline
	managers  map[string][]string
}

func newFakePipelineRepo() *fakePipelineRepo {
	return &fakePipelineRepo{
		pipelines: make(map[string]domain.Pipeline),
		managers:  make(map[string][]string),
	}
}

func (r *fakePipelineRepo) GetByID(_ context.Context, id string) (*domain.Pipeline, error) {
	p, ok := r.pipelines[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakePipelineRepo) ListLeadManagerIDs(_ context.Context, pipelineID string) ([]string, error) {
	ids := append([]string{}, r.managers[pipelineID]...)
	sort.Strings(ids)
	return ids, nil
}

type fakeChannelRepo struct {
	channels map[string]domain.Channel
}

func newFakeChannelRepo(channels ...domain.Channel) *fakeChannelRepo {
	r := &fakeChannelRepo{channels: make(map[string]domain.Channel)}
	for _, c := range channels {
		r.channels[c.ID] = c
	}
	return r
}

func (r *fakeChannelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	c, ok := r.channels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type fakeQueueRepo struct {
	queues  map[string]domain.Queue
	members map[string][]string
}

func newFakeQueueRepo(queues ...domain.Queue) *fakeQueueRepo {
	r := &fakeQueueRepo{queues: make(map[string]domain.Queue), members: make(map[string][]string)}
	for _, q := range queues {
		r.queues[q.ID] = q
	}
	return r
}

func (r *fakeQueueRepo) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	q, ok := r.queues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (r *fakeQueueRepo) ListActiveForChannel(_ context.Context, channelID string) ([]domain.Queue, error) {
	var out []domain.Queue
	for _, q := range r.queues {
		if q.ChannelID == channelID && q.IsActive {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuOption < out[j].MenuOption })
	return out, nil
}

func (r *fakeQueueRepo) FindByMenuOption(_ context.Context, channelID string, option int) (*domain.Queue, error) {
	for _, q := range r.queues {
		if q.ChannelID == channelID && q.IsActive && q.MenuOption == option {
			queue := q
			return &queue, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeQueueRepo) FindByLabel(_ context.Context, channelID, text string) (*domain.Queue, error) {
	for _, q := range r.queues {
		if q.ChannelID == channelID && q.IsActive && q.MenuLabel == text {
			queue := q
			return &queue, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeQueueRepo) ListActiveMemberIDs(_ context.Context, queueID string) ([]string, error) {
	ids := append([]string{}, r.members[queueID]...)
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeQueueRepo) ListMembers(_ context.Context, queueID string) ([]domain.QueueMember, error) {
	out := make([]domain.QueueMember, 0, len(r.members[queueID]))
	for _, id := range r.members[queueID] {
		out = append(out, domain.QueueMember{QueueID: queueID, UserID: id, IsActive: true})
	}
	return out, nil
}

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]domain.Lead
}

func newFakeLeadRepo(leads ...domain.Lead) *fakeLeadRepo {
	r := &fakeLeadRepo{leads: make(map[string]domain.Lead)}
	for _, l := range leads {
		r.leads[l.ID] = l
	}
	return r
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &l, nil
}

func (r *fakeLeadRepo) UpdateOwner(_ context.Context, leadID string, ownerID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok {
		return pgx.ErrNoRows
	}
	l.OwnerID = ownerID
	r.leads[leadID] = l
	return nil
}

func (r *fakeLeadRepo) UpdateRouting(_ context.Context, lead *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = *lead
	return nil
}

func (r *fakeLeadRepo) CountByQueueOwner(_ context.Context, queueID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.leads {
		if l.QueueID != nil && *l.QueueID == queueID && l.OwnerID != nil && *l.OwnerID == userID {
			n++
		}
	}
	return n, nil
}

// fakeLedgerRepo reproduces the claim semantics in memory: candidates with
// no entry win first, then the oldest stamp, ties on ascending user id.
// Stamps are strictly monotonic per repo so rotation order is never lost to
// equal timestamps. Conflicts can be injected to exercise the retry path.
type fakeLedgerRepo struct {
	mu        sync.Mutex
	entries   map[string]map[string]time.Time
	lastTick  time.Time
	conflicts int
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: make(map[string]map[string]time.Time)}
}

func (r *fakeLedgerRepo) injectConflicts(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = n
}

func (r *fakeLedgerRepo) Claim(_ context.Context, scope domain.LedgerScope, candidates []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts > 0 {
		r.conflicts--
		return "", repository.ErrClaimConflict
	}

	sorted := append([]string{}, candidates...)
	sort.Strings(sorted)

	scoped := r.entries[scope.Key()]
	winner := ""
	var winnerAt time.Time
	for _, id := range sorted {
		at, ok := scoped[id]
		if !ok {
			winner = id
			break
		}
		if winner == "" || at.Before(winnerAt) {
			winner = id
			winnerAt = at
		}
	}

	tick := time.Now()
	if !tick.After(r.lastTick) {
		tick = r.lastTick.Add(time.Nanosecond)
	}
	r.lastTick = tick

	if scoped == nil {
		scoped = make(map[string]time.Time)
		r.entries[scope.Key()] = scoped
	}
	scoped[winner] = tick
	return winner, nil
}

func (r *fakeLedgerRepo) Entries(_ context.Context, scope domain.LedgerScope) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerEntry
	for user, at := range r.entries[scope.Key()] {
		out = append(out, domain.LedgerEntry{
			TenantID:       scope.TenantID,
			UserID:         user,
			ChannelID:      scope.ChannelID,
			QueueID:        scope.QueueID,
			LastAssignedAt: at,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAssignedAt.Before(out[j].LastAssignedAt) })
	return out, nil
}

func (r *fakeLedgerRepo) ResetScope(_ context.Context, scope domain.LedgerScope) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.entries[scope.Key()]))
	delete(r.entries, scope.Key())
	return n, nil
}

func (r *fakeLedgerRepo) stamps(scope domain.LedgerScope) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, at := range r.entries[scope.Key()] {
		out = append(out, at)
	}
	return out
}

type fakeQueueOwnerRepo struct {
	mu     sync.Mutex
	owners map[string]domain.QueueOwner
}

func newFakeQueueOwnerRepo() *fakeQueueOwnerRepo {
	return &fakeQueueOwnerRepo{owners: make(map[string]domain.QueueOwner)}
}

func ownerKey(leadID, queueID string) string { return leadID + "/" + queueID }

func (r *fakeQueueOwnerRepo) Get(_ context.Context, leadID, queueID string) (*domain.QueueOwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[ownerKey(leadID, queueID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &o, nil
}

func (r *fakeQueueOwnerRepo) InsertIfAbsent(_ context.Context, leadID, queueID, userID string) (*domain.QueueOwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ownerKey(leadID, queueID)
	if existing, ok := r.owners[key]; ok {
		return &existing, nil
	}
	o := domain.QueueOwner{LeadID: leadID, QueueID: queueID, UserID: userID, AssignedAt: time.Now()}
	r.owners[key] = o
	return &o, nil
}

type fakeInteractionRepo struct {
	mu       sync.Mutex
	latest   map[string]domain.ContactInteraction
	recorded []domain.ContactInteraction
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{latest: make(map[string]domain.ContactInteraction)}
}

func interactionKey(contactID, channelID string) string { return contactID + "/" + channelID }

func (r *fakeInteractionRepo) seed(interaction domain.ContactInteraction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[interactionKey(interaction.ContactID, interaction.ChannelID)] = interaction
}

func (r *fakeInteractionRepo) Latest(_ context.Context, contactID, channelID string) (*domain.ContactInteraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.latest[interactionKey(contactID, channelID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &i, nil
}

func (r *fakeInteractionRepo) Record(_ context.Context, interaction *domain.ContactInteraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interaction.OccurredAt.IsZero() {
		interaction.OccurredAt = time.Now()
	}
	r.latest[interactionKey(interaction.ContactID, interaction.ChannelID)] = *interaction
	r.recorded = append(r.recorded, *interaction)
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	records []domain.AssignmentRecord
}

func (r *fakeHistoryRepo) Create(_ context.Context, record *domain.AssignmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeHistoryRepo) ListByLead(_ context.Context, leadID string, limit int) ([]domain.AssignmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AssignmentRecord
	for i := len(r.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.records[i].LeadID == leadID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
