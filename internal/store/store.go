// Package store is the durable record of notifications per recipient and the
// source of truth for read/unread state.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

var (
	// ErrNotFound means the notification does not exist or is not owned by
	// the calling recipient. The two cases are deliberately
	// indistinguishable to prevent cross-tenant probing.
	ErrNotFound = errors.New("notification not found")

	// ErrAlreadyRead signals an idempotent no-op: the notification was
	// already read. Not a failure.
	ErrAlreadyRead = errors.New("notification already read")

	// ErrStorageUnavailable wraps storage-layer failures. Fatal to the
	// operation, surfaced to the caller, never swallowed.
	ErrStorageUnavailable = errors.New("notification storage unavailable")
)

// CreateParams are the producer-supplied fields of a new notification.
// ID, Timestamp and Read are assigned by the store.
type CreateParams struct {
	RecipientID string
	Type        string
	Severity    model.Severity
	Message     string
	Details     json.RawMessage
}

// Store is the NotificationStore contract.
//
// Create assigns a fresh unique id and a timestamp that is >= every
// timestamp the store assigned before, across all recipients.
//
// ListUnread returns the recipient's unread notifications newest first; an
// empty slice, not an error, when there are none.
//
// MarkRead transitions exactly one owned notification to read. It returns
// ErrAlreadyRead on repeat calls and ErrNotFound for unknown or foreign ids.
type Store interface {
	Create(ctx context.Context, params CreateParams) (model.Notification, error)
	ListUnread(ctx context.Context, recipientID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}
