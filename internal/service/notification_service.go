package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/lead-dispatch/internal/config"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/persistence"
)

// NotificationService fans domain events out to collaborators: a Redis
// pub/sub channel for in-cluster consumers and an optional webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventLeadOwnerAssigned, n.handleEvent)
	n.dispatcher.Subscribe(events.EventLeadNeedsAttention, n.handleEvent)
	n.dispatcher.Subscribe(events.EventLeadRouted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventDistributionReset, n.handleEvent)
	n.dispatcher.Subscribe(events.EventEligibilityMismatch, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("lead_id", event.LeadID),
		zap.Any("payload", event.Payload))
	n.publishRedis(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) publishRedis(ctx context.Context, event events.Event) {
	if n.redis == nil || n.redis.Client == nil || n.cfg.RedisChannel == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal event", zap.Error(err))
		return
	}
	if err := n.redis.Client.Publish(ctx, n.cfg.RedisChannel, body).Err(); err != nil {
		n.logger.Warn("publish event to redis",
			zap.String("channel", n.cfg.RedisChannel),
			zap.Error(err))
	}
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("lead_id", event.LeadID),
		zap.String("event_type", string(event.Type)))
}
