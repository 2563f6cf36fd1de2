package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "github.com/gamefrenza/AI-Legal-Agent/contracts/mq"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/metrics"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/outbox"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    details JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    read BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications(recipient_id);

CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(recipient_id, created_at DESC) WHERE read = FALSE;
`

// PostgresStore is the durable Store. Every create also records a
// notification.stored event in the transactional outbox, and every read
// transition records notification.read, so downstream consumers never miss
// a state change the database committed.
type PostgresStore struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger

	// Guards timestamp assignment so timestamps are globally non-decreasing
	// in id-assignment order even when creates race.
	tsMu   sync.Mutex
	lastTS time.Time
}

func NewPostgresStore(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

// InitSchema creates the notifications table if missing.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) nextTimestamp() time.Time {
	s.tsMu.Lock()
	defer s.tsMu.Unlock()

	ts := time.Now().UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}

func (s *PostgresStore) Create(ctx context.Context, params CreateParams) (model.Notification, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOpDuration("create", time.Since(start)) }()

	n := model.Notification{
		ID:          uuid.NewString(),
		RecipientID: params.RecipientID,
		Type:        params.Type,
		Severity:    params.Severity,
		Message:     params.Message,
		Details:     params.Details,
		Timestamp:   s.nextTimestamp(),
		Read:        false,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Notification{}, fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO notifications (id, recipient_id, type, severity, message, details, created_at, read)
        VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
    `
	if _, err := tx.Exec(ctx, query,
		n.ID, n.RecipientID, n.Type, string(n.Severity), n.Message, n.Details, n.Timestamp,
	); err != nil {
		return model.Notification{}, fmt.Errorf("%w: insert: %v", ErrStorageUnavailable, err)
	}

	if s.outbox != nil {
		payload := mqcontracts.NotificationStoredPayload{
			Notification: n,
			StoredAt:     time.Now().UTC(),
		}
		if err := outbox.InsertEventInTx(ctx, tx, s.outbox, "notification", n.ID,
			mqcontracts.RoutingKeyNotificationStored, payload); err != nil {
			return model.Notification{}, fmt.Errorf("%w: outbox insert: %v", ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Notification{}, fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("Notification created",
		zap.String("id", n.ID),
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", n.Type),
		zap.String("severity", string(n.Severity)),
	)
	return n, nil
}

func (s *PostgresStore) ListUnread(ctx context.Context, recipientID string) ([]model.Notification, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOpDuration("list_unread", time.Since(start)) }()

	query := `
        SELECT id, recipient_id, type, severity, message, details, created_at, read
        FROM notifications
        WHERE recipient_id = $1 AND read = FALSE
        ORDER BY created_at DESC, id DESC
    `
	rows, err := s.db.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("%w: list unread: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		var severity string
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Type, &severity, &n.Message, &n.Details, &n.Timestamp, &n.Read,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorageUnavailable, err)
		}
		n.Severity = model.Severity(severity)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStorageUnavailable, err)
	}

	return out, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, recipientID, id string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreOpDuration("mark_read", time.Since(start)) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	// The conditional update makes the transition idempotent: a second call
	// matches zero rows and falls through to the ownership check.
	tag, err := tx.Exec(ctx, `
        UPDATE notifications SET read = TRUE
        WHERE id = $1 AND recipient_id = $2 AND read = FALSE
    `, id, recipientID)
	if err != nil {
		return fmt.Errorf("%w: mark read: %v", ErrStorageUnavailable, err)
	}

	if tag.RowsAffected() == 0 {
		var read bool
		err := tx.QueryRow(ctx, `
            SELECT read FROM notifications WHERE id = $1 AND recipient_id = $2
        `, id, recipientID).Scan(&read)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: ownership check: %v", ErrStorageUnavailable, err)
		}
		if read {
			return ErrAlreadyRead
		}
		return ErrNotFound
	}

	if s.outbox != nil {
		payload := mqcontracts.NotificationReadPayload{
			NotificationID: id,
			RecipientID:    recipientID,
			ReadAt:         time.Now().UTC(),
		}
		if err := outbox.InsertEventInTx(ctx, tx, s.outbox, "notification", id,
			mqcontracts.RoutingKeyNotificationRead, payload); err != nil {
			return fmt.Errorf("%w: outbox insert: %v", ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("Notification marked read",
		zap.String("id", id),
		zap.String("recipient_id", recipientID),
	)
	return nil
}
