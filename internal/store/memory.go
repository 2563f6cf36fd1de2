package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// MemoryStore is an in-process Store for local development and tests. It
// honors the same contract as the Postgres store, including the global
// monotonic timestamp guarantee.
type MemoryStore struct {
	mu     sync.Mutex
	byUser map[string][]*model.Notification
	byID   map[string]*model.Notification
	lastTS time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]*model.Notification),
		byID:   make(map[string]*model.Notification),
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, params CreateParams) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts

	n := &model.Notification{
		ID:          uuid.NewString(),
		RecipientID: params.RecipientID,
		Type:        params.Type,
		Severity:    params.Severity,
		Message:     params.Message,
		Details:     params.Details,
		Timestamp:   ts,
		Read:        false,
	}

	s.byUser[n.RecipientID] = append(s.byUser[n.RecipientID], n)
	s.byID[n.ID] = n

	return *n, nil
}

func (s *MemoryStore) ListUnread(ctx context.Context, recipientID string) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUser[recipientID]
	out := make([]model.Notification, 0, len(list))
	// Stored oldest first; the contract wants newest first.
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].Read {
			out = append(out, *list[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, recipientID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	if n.Read {
		return ErrAlreadyRead
	}
	n.Read = true
	return nil
}
