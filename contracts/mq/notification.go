package mq

import (
	"encoding/json"
	"time"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// Routing keys on the notifications exchange.
const (
	RoutingKeyNotificationCreate = "notification.create"
	RoutingKeyNotificationStored = "notification.stored"
	RoutingKeyNotificationRead   = "notification.read"
)

// NotificationCreatePayload is published by producer services that originate
// notifications over MQ instead of the REST API. EventID is producer-assigned
// and used for consumer-side dedup across redeliveries.
type NotificationCreatePayload struct {
	EventID     string          `json:"event_id"`
	RecipientID string          `json:"recipient_id"`
	Type        string          `json:"type"`
	Severity    string          `json:"severity"`
	Message     string          `json:"message"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NotificationStoredPayload fans out a persisted notification to downstream
// consumers (audit trail, e-mail bridge). Published through the outbox so it
// cannot be lost between the insert and the broker.
type NotificationStoredPayload struct {
	Notification model.Notification `json:"notification"`
	StoredAt     time.Time          `json:"stored_at"`
}

// NotificationReadPayload records a read-state transition for downstream
// consumers.
type NotificationReadPayload struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	ReadAt         time.Time `json:"read_at"`
}
