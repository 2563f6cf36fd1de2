// Package delivery maintains the live per-recipient connection registry and
// pushes newly stored notifications to connected sessions.
package delivery

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/metrics"
)

// Session is one live connection for a recipient. Send must be safe for
// concurrent use; implementations serialize writes internally.
type Session interface {
	Send(n model.Notification) error
	Close() error
}

// Hub maps recipient ids to their live sessions. A recipient may hold zero
// or more sessions; sessions that fail a push are evicted without touching
// any other session. There is no queuing: a recipient with no session simply
// receives nothing and re-syncs from the store on reconnect.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[string]map[Session]struct{}
	recipient map[Session]string
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions:  make(map[string]map[Session]struct{}),
		recipient: make(map[Session]string),
		logger:    logger,
	}
}

// Register attaches a session to a recipient. Idempotent.
func (h *Hub) Register(recipientID string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.recipient[s]; ok {
		return
	}

	set, ok := h.sessions[recipientID]
	if !ok {
		set = make(map[Session]struct{})
		h.sessions[recipientID] = set
	}
	set[s] = struct{}{}
	h.recipient[s] = recipientID

	metrics.LiveSessions.Inc()
	h.logger.Info("Session registered",
		zap.String("recipient_id", recipientID),
		zap.Int("sessions", len(set)),
	)
}

// Unregister detaches a session. Idempotent; unknown sessions are a no-op.
func (h *Hub) Unregister(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(s)
}

func (h *Hub) unregisterLocked(s Session) {
	recipientID, ok := h.recipient[s]
	if !ok {
		return
	}
	delete(h.recipient, s)

	set := h.sessions[recipientID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.sessions, recipientID)
	}

	metrics.LiveSessions.Dec()
	h.logger.Info("Session unregistered",
		zap.String("recipient_id", recipientID),
	)
}

// Publish pushes n to every live session of its recipient. A failing session
// is evicted and the push continues with the remaining sessions; one dead
// connection never affects another.
func (h *Hub) Publish(n model.Notification) {
	h.mu.RLock()
	set := h.sessions[n.RecipientID]
	targets := make([]Session, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var dead []Session
	for _, s := range targets {
		if err := s.Send(n); err != nil {
			h.logger.Warn("Push failed, evicting session",
				zap.String("recipient_id", n.RecipientID),
				zap.String("notification_id", n.ID),
				zap.Error(err),
			)
			metrics.PushFailedCount.Inc()
			dead = append(dead, s)
			continue
		}
		metrics.PushDeliveredCount.Inc()
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, s := range dead {
			h.unregisterLocked(s)
		}
		h.mu.Unlock()
		for _, s := range dead {
			_ = s.Close()
		}
	}
}

// Recipients returns the ids of all currently connected recipients.
func (h *Hub) Recipients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		out = append(out, id)
	}
	return out
}

// SessionCount returns the number of live sessions for a recipient.
func (h *Hub) SessionCount(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[recipientID])
}
