package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/config"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
)

// NotificationService handles emitting notifications for pipeline events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventImportBatchCreated, n.handleBatchCreated)
	n.dispatcher.Subscribe(events.EventImportBatchStatusChanged, n.handleBatchStatusChanged)
	n.dispatcher.Subscribe(events.EventImportRowsPersisted, n.handleRowsPersisted)
	n.dispatcher.Subscribe(events.EventEnrichmentMerged, n.handleEnrichmentMerged)
}

func (n *NotificationService) handleBatchCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ImportBatchCreated", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBatchStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ImportBatchStatusChanged", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRowsPersisted(ctx context.Context, event events.Event) error {
	n.logger.Info("ImportRowsPersisted", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleEnrichmentMerged(ctx context.Context, event events.Event) error {
	n.logger.Info("EnrichmentMerged", zap.String("batch_id", event.BatchID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("batch_id", event.BatchID),
		zap.String("event_type", string(event.Type)))
}
