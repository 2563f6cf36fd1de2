// Package service wires the notification store and the live delivery hub
// into the operations the transport layers expose.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/delivery"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/metrics"
)

// ErrInvalidParams marks producer input that fails validation before it
// reaches the store.
type ErrInvalidParams struct {
	Reason string
}

func (e *ErrInvalidParams) Error() string {
	return "invalid notification params: " + e.Reason
}

// Notifier is the server-side notification service: durable write first,
// then best-effort live push. The push never gates the write; a recipient
// with no live session picks the notification up from the unread feed.
type Notifier struct {
	store  store.Store
	hub    *delivery.Hub
	logger *zap.Logger
}

func NewNotifier(s store.Store, hub *delivery.Hub, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:  s,
		hub:    hub,
		logger: logger,
	}
}

func validateParams(params store.CreateParams) error {
	if strings.TrimSpace(params.RecipientID) == "" {
		return &ErrInvalidParams{Reason: "recipient_id is required"}
	}
	return validateContent(params)
}

func validateContent(params store.CreateParams) error {
	if strings.TrimSpace(params.Type) == "" {
		return &ErrInvalidParams{Reason: "type is required"}
	}
	if strings.TrimSpace(params.Message) == "" {
		return &ErrInvalidParams{Reason: "message is required"}
	}
	if !params.Severity.Valid() {
		return &ErrInvalidParams{Reason: fmt.Sprintf("unknown severity %q", params.Severity)}
	}
	return nil
}

// Create persists a notification and pushes it to the recipient's live
// sessions.
func (n *Notifier) Create(ctx context.Context, params store.CreateParams) (model.Notification, error) {
	if err := validateParams(params); err != nil {
		return model.Notification{}, err
	}

	notif, err := n.store.Create(ctx, params)
	if err != nil {
		return model.Notification{}, err
	}

	metrics.IncrementNotificationCreated(notif.Type, string(notif.Severity))
	n.logger.Info("Notification created",
		zap.String("id", notif.ID),
		zap.String("recipient_id", notif.RecipientID),
		zap.String("type", notif.Type),
		zap.String("severity", string(notif.Severity)),
	)

	n.hub.Publish(notif)
	return notif, nil
}

// Broadcast creates one notification per currently connected recipient.
// Recipients that connect a moment later are not included; broadcast is a
// point-in-time operation over the live registry.
func (n *Notifier) Broadcast(ctx context.Context, params store.CreateParams) ([]model.Notification, error) {
	if err := validateContent(params); err != nil {
		return nil, err
	}

	recipients := n.hub.Recipients()
	created := make([]model.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		params.RecipientID = recipientID
		notif, err := n.Create(ctx, params)
		if err != nil {
			n.logger.Error("Broadcast delivery failed for recipient",
				zap.String("recipient_id", recipientID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, notif)
	}

	n.logger.Info("Broadcast complete",
		zap.Int("recipients", len(recipients)),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// ListUnread returns the recipient's unread feed, newest first.
func (n *Notifier) ListUnread(ctx context.Context, recipientID string) ([]model.Notification, error) {
	return n.store.ListUnread(ctx, recipientID)
}

// MarkRead transitions one owned notification to read. Sentinel errors from
// the store pass through unchanged.
func (n *Notifier) MarkRead(ctx context.Context, recipientID, id string) error {
	return n.store.MarkRead(ctx, recipientID, id)
}
