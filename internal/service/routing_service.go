package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// RouteKind says how a returning contact should re-enter the organization.
type RouteKind string

const (
	RouteDirect RouteKind = "DIRECT"
	RouteMenu   RouteKind = "MENU"
)

// RouteDecision is the outcome of the return-routing state machine. A pure
// decision over timestamps; nothing blocks or waits.
type RouteDecision struct {
	State   domain.RouteState
	Kind    RouteKind
	OwnerID *string
	LeadID  *string
	Menu    *MenuPrompt
}

// MenuOption is one selectable queue in a channel menu.
type MenuOption struct {
	Option     int
	QueueID    string
	Label      string
	PipelineID string
}

// MenuPrompt is the rendered queue menu for a channel.
type MenuPrompt struct {
	Text    string
	Options []MenuOption
}

// RoutingService decides how inbound events from existing contacts re-enter
// the organization: straight back to the prior owner within the channel's
// return window, or through the queue menu and a fresh selection.
type RoutingService struct {
	channels      repository.ChannelRepository
	queues        repository.QueueRepository
	users         repository.UserRepository
	leads         repository.LeadRepository
	pipelines     repository.PipelineRepository
	interactions  repository.InteractionRepository
	ownership     *OwnershipService
	assignment    *AssignmentService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
	returnTimeout time.Duration
}

// RoutingDependencies bundles collaborators.
type RoutingDependencies struct {
	ChannelRepo     repository.ChannelRepository
	QueueRepo       repository.QueueRepository
	UserRepo        repository.UserRepository
	LeadRepo        repository.LeadRepository
	PipelineRepo    repository.PipelineRepository
	InteractionRepo repository.InteractionRepository
	Ownership       *OwnershipService
	Assignment      *AssignmentService
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Now             func() time.Time
	ReturnTimeout   time.Duration
}

// NewRoutingService creates the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	returnTimeout := deps.ReturnTimeout
	if returnTimeout <= 0 {
		returnTimeout = domain.DefaultReturnTimeoutHours * time.Hour
	}
	return &RoutingService{
		channels:      deps.ChannelRepo,
		queues:        deps.QueueRepo,
		users:         deps.UserRepo,
		leads:         deps.LeadRepo,
		pipelines:     deps.PipelineRepo,
		interactions:  deps.InteractionRepo,
		ownership:     deps.Ownership,
		assignment:    deps.Assignment,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		now:           now,
		returnTimeout: returnTimeout,
	}
}

// RouteReturningContact classifies an inbound event from a contact on a
// channel. Within the return window the prior owner is reused as long as
// that user is still active; otherwise the contact re-enters the menu path.
func (s *RoutingService) RouteReturningContact(ctx context.Context, contactID, channelID string) (*RouteDecision, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("channel", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.MapError(err)
	}

	last, err := s.interactions.Latest(ctx, contactID, channelID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return s.menuDecision(ctx, channel, domain.RouteStateNewContact, nil)
		}
		return nil, apperrors.MapError(err)
	}

	elapsed := s.now().Sub(last.OccurredAt)
	if elapsed >= channel.ReturnTimeout(s.returnTimeout) {
		return s.menuDecision(ctx, channel, domain.RouteStateExpiredTimeout, &last.LeadID)
	}

	if last.OwnerID == nil {
		return s.menuDecision(ctx, channel, domain.RouteStateWithinTimeout, &last.LeadID)
	}

	owner, err := s.users.GetByID(ctx, *last.OwnerID)
	if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if err == pgx.ErrNoRows || !owner.Active {
		// Prior owner can no longer handle the contact. Recovered locally by
		// taking the expired path; never surfaced as an error.
		s.logger.Warn("prior owner invalid, falling back to menu",
			zap.String("contact_id", contactID),
			zap.String("channel_id", channelID),
			zap.Stringp("owner_id", last.OwnerID))
		return s.menuDecision(ctx, channel, domain.RouteStateExpiredTimeout, &last.LeadID)
	}

	s.logger.Info("returning contact routed to prior owner",
		zap.String("contact_id", contactID),
		zap.String("owner_id", owner.ID),
		zap.Duration("elapsed", elapsed))
	return &RouteDecision{
		State:   domain.RouteStateWithinTimeout,
		Kind:    RouteDirect,
		OwnerID: last.OwnerID,
		LeadID:  &last.LeadID,
	}, nil
}

func (s *RoutingService) menuDecision(ctx context.Context, channel *domain.Channel, state domain.RouteState, leadID *string) (*RouteDecision, error) {
	menu, err := s.BuildMenu(ctx, channel)
	if err != nil {
		return nil, err
	}
	return &RouteDecision{State: state, Kind: RouteMenu, LeadID: leadID, Menu: menu}, nil
}

// BuildMenu renders the channel's queue menu from its active queues.
func (s *RoutingService) BuildMenu(ctx context.Context, channel *domain.Channel) (*MenuPrompt, error) {
	queues, err := s.queues.ListActiveForChannel(ctx, channel.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	header := strings.TrimSpace(channel.MenuHeaderText)
	if header == "" {
		header = "Choose an option:"
	}

	var b strings.Builder
	b.WriteString(header)
	options := make([]MenuOption, 0, len(queues))
	for i := range queues {
		queue := &queues[i]
		b.WriteString("\n")
		b.WriteString(queue.MenuLine())
		options = append(options, MenuOption{
			Option:     queue.MenuOption,
			QueueID:    queue.ID,
			Label:      queue.MenuLabel,
			PipelineID: queue.PipelineID,
		})
	}
	return &MenuPrompt{Text: b.String(), Options: options}, nil
}

// MenuForChannel loads the channel and renders its menu.
func (s *RoutingService) MenuForChannel(ctx context.Context, channelID string) (*MenuPrompt, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("channel", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.BuildMenu(ctx, channel)
}

// MatchMenuResponse resolves a raw contact reply to a queue: a numeric reply
// matches the menu option, anything else falls back to a label search.
func (s *RoutingService) MatchMenuResponse(ctx context.Context, channelID, response string) (*domain.Queue, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperrors.NewValidationError("empty menu response", nil)
	}

	if option, err := strconv.Atoi(response); err == nil {
		queue, err := s.queues.FindByMenuOption(ctx, channelID, option)
		if err == nil {
			return queue, nil
		}
		if err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
	}

	queue, err := s.queues.FindByLabel(ctx, channelID, response)
	if err != nil {
		if err == pgx.ErrNoRows {
			details := map[string]any{
				"channel_id": channelID,
				"response":   response,
			}
			if channel, cerr := s.channels.GetByID(ctx, channelID); cerr == nil && channel.MenuInvalidText != "" {
				details["invalid_text"] = channel.MenuInvalidText
			}
			return nil, apperrors.NewNotFound("queue", details)
		}
		return nil, apperrors.MapError(err)
	}
	return queue, nil
}

// HandleMenuResponse matches the reply to a queue and routes the lead there.
func (s *RoutingService) HandleMenuResponse(ctx context.Context, leadID, channelID, response string) (*domain.Queue, *string, error) {
	queue, err := s.MatchMenuResponse(ctx, channelID, response)
	if err != nil {
		return nil, nil, err
	}
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	ownerID, err := s.RouteLeadToQueue(ctx, lead, queue, domain.SourceMenuRoute)
	if err != nil {
		return nil, nil, err
	}
	return queue, ownerID, nil
}

// RouteLeadToQueue moves the lead into the queue: stage is kept when the
// pipeline is unchanged, otherwise the lead enters the pipeline's first
// stage. A sticky owner, when present and active, takes the lead directly;
// otherwise an auto-distributing queue triggers a fresh selection. Returns
// the resulting owner id, nil when the lead stays unowned.
func (s *RoutingService) RouteLeadToQueue(ctx context.Context, lead *domain.Lead, queue *domain.Queue, source domain.AssignmentSource) (*string, error) {
	samePipeline := lead.PipelineID == queue.PipelineID
	stageID := lead.StageID
	if !samePipeline || stageID == nil {
		pipeline, err := s.pipelines.GetByID(ctx, queue.PipelineID)
		if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		if pipeline != nil {
			stageID = pipeline.FirstStageID
		}
	}

	lead.QueueID = &queue.ID
	lead.PipelineID = queue.PipelineID
	lead.StageID = stageID
	if err := s.leads.UpdateRouting(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(events.EventLeadRouted, lead.TenantID, lead.ID, events.LeadRoutedPayload{
		QueueID:    queue.ID,
		PipelineID: queue.PipelineID,
		StageID:    deref(stageID),
	}))

	if !queue.AutoDistribute {
		// Manual queues wait for a human pick; only a pre-existing sticky
		// owner is honored.
		owner, err := s.ownership.GetQueueOwner(ctx, lead.ID, queue.ID)
		if err != nil || owner == nil {
			return nil, err
		}
		ownerID, _, err2 := s.assignment.AssignLead(ctx, lead.ID, &queue.ID, domain.SourceStickyOwner)
		if err2 != nil {
			return nil, err2
		}
		return &ownerID, nil
	}

	ownerID, _, err := s.assignment.AssignLead(ctx, lead.ID, &queue.ID, source)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "EMPTY_CANDIDATE_SET" {
			// Already flagged for manual handling; the lead stays unowned.
			return nil, nil
		}
		return nil, err
	}
	return &ownerID, nil
}

func (s *RoutingService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
