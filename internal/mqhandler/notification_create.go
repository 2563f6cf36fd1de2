// Package mqhandler consumes notification events from the message broker
// and feeds them into the notification service.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	contracts "github.com/gamefrenza/AI-Legal-Agent/contracts/mq"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/service"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

const handlerName = "notification-create"

// DLQPublisher parks poisoned messages on the dead letter exchange.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// NotificationCreateHandler processes notification.create events. Delivery is
// at-least-once, so the handler dedups on the producer-assigned event id and
// bounds requeues per event before parking the message on the DLQ.
type NotificationCreateHandler struct {
	notifier     *service.Notifier
	deduper      *util.Deduper
	retryCounter *util.RetryCounter
	dlq          DLQPublisher
	maxRetries   int64
	logger       *zap.Logger
}

func NewNotificationCreateHandler(
	notifier *service.Notifier,
	deduper *util.Deduper,
	retryCounter *util.RetryCounter,
	dlq DLQPublisher,
	maxRetries int64,
	logger *zap.Logger,
) *NotificationCreateHandler {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &NotificationCreateHandler{
		notifier:     notifier,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// Handle is the consumer callback. A nil return acks the message; an error
// return nacks it with requeue, so Handle converts non-retryable and
// over-budget failures into DLQ parks followed by a nil return.
func (h *NotificationCreateHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload contracts.NotificationCreatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Malformed JSON never becomes valid on redelivery.
		h.park(contracts.RoutingKeyNotificationCreate, data, fmt.Sprintf("unmarshal: %v", err))
		return nil
	}

	if payload.EventID == "" {
		h.park(contracts.RoutingKeyNotificationCreate, data, "missing event_id")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, payload.EventID) {
		return nil
	}

	_, err := h.notifier.Create(ctx, store.CreateParams{
		RecipientID: payload.RecipientID,
		Type:        payload.Type,
		Severity:    model.Severity(payload.Severity),
		Message:     payload.Message,
		Details:     payload.Details,
	})
	if err == nil {
		_ = h.retryCounter.Reset(ctx, util.FormatRetryKey(handlerName, payload.EventID))
		return nil
	}

	retryable, category := util.IsRetryableError(err)
	if !retryable {
		h.logger.Error("Non-retryable failure, sending to DLQ",
			zap.String("event_id", payload.EventID),
			zap.String("category", category),
			zap.Error(err),
		)
		h.park(contracts.RoutingKeyNotificationCreate, data, err.Error())
		return nil
	}

	count, cerr := h.retryCounter.IncrementAndGet(ctx, util.FormatRetryKey(handlerName, payload.EventID))
	if cerr != nil {
		h.logger.Warn("Retry counter unavailable, requeueing without budget",
			zap.String("event_id", payload.EventID),
			zap.Error(cerr),
		)
		h.deduper.Release(ctx, handlerName, payload.EventID)
		return err
	}
	if count >= h.maxRetries {
		h.logger.Error("Retry budget exhausted, sending to DLQ",
			zap.String("event_id", payload.EventID),
			zap.Int64("retries", count),
			zap.Error(err),
		)
		h.park(contracts.RoutingKeyNotificationCreate, data, err.Error())
		return nil
	}

	h.logger.Warn("Retryable failure, requeueing",
		zap.String("event_id", payload.EventID),
		zap.Int64("attempt", count),
		zap.String("category", category),
		zap.Error(err),
	)
	h.deduper.Release(ctx, handlerName, payload.EventID)
	return err
}

func (h *NotificationCreateHandler) park(routingKey string, payload []byte, reason string) {
	if err := h.dlq.PublishToDLQ(routingKey, payload, reason); err != nil {
		h.logger.Error("Failed to publish to DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
