// Package engine reconciles a locally cached notification view against the
// authoritative store. It merges the initial unread snapshot with the live
// push stream into one consistent ordered view and issues optimistic
// read-state transitions back to the store, rolling them back on failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
)

// State is the engine lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateSyncing
	StateLive
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSyncing:
		return "syncing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned for operations on a closed engine.
	ErrClosed = errors.New("reconciliation engine is closed")

	// ErrSyncExhausted means the bounded resync retry budget ran out. The
	// view is retained; it may simply be stale.
	ErrSyncExhausted = errors.New("notification sync retry budget exhausted")

	errAlreadyStarted = errors.New("reconciliation engine already started")
)

// StoreClient is the remote store surface the engine needs. MarkRead returns
// store.ErrNotFound and store.ErrAlreadyRead as sentinels; anything else is
// treated as a transport failure.
type StoreClient interface {
	ListUnread(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Config tunes the engine. The resync budget bounds retries before the
// engine reports staleness; it is a tunable, not a correctness knob.
type Config struct {
	ResyncMaxRetries int
	ResyncDelay      time.Duration

	// OnStale is invoked (outside the engine loop) when a scheduled resync
	// exhausts its budget. The view stays usable, just possibly stale.
	OnStale func(error)

	// OnNotification is invoked for each notification newly added to the
	// view, in merge order. Must not call back into the engine.
	OnNotification func(model.Notification)
}

// Engine is the client-side reconciliation state machine.
//
// All state lives behind a single mailbox goroutine, so one push or one user
// action is processed to completion before the next: the merge and rollback
// logic never races with itself. Remote calls run off-loop and post their
// results back as mailbox commands, which check the state before applying
// anything; a result arriving after Close mutates nothing.
type Engine struct {
	client StoreClient
	logger *zap.Logger
	cfg    Config

	ctx     context.Context
	cancel  context.CancelFunc
	mailbox chan func()

	// Written only by the mailbox loop; mu lets accessors read concurrently.
	mu       sync.RWMutex
	state    State
	view     *view
	deferred []model.Notification

	resyncing atomic.Bool
}

func New(client StoreClient, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResyncMaxRetries <= 0 {
		cfg.ResyncMaxRetries = 5
	}
	if cfg.ResyncDelay <= 0 {
		cfg.ResyncDelay = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		client:  client,
		logger:  logger,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		mailbox: make(chan func(), 128),
		view:    newView(),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	for {
		select {
		case <-e.ctx.Done():
			e.mu.Lock()
			e.state = StateClosed
			e.mu.Unlock()
			return
		case fn := <-e.mailbox:
			fn()
		}
	}
}

// post enqueues fn for the loop without waiting for it.
func (e *Engine) post(fn func()) bool {
	select {
	case e.mailbox <- fn:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// dispatch enqueues fn and waits until the loop has executed it.
func (e *Engine) dispatch(fn func()) bool {
	done := make(chan struct{})
	if !e.post(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// Start fetches the initial unread snapshot and transitions the engine to
// Live. On a bounded-retry failure it returns ErrSyncExhausted and reverts
// to Uninitialized so the caller may start again.
func (e *Engine) Start(ctx context.Context) error {
	var startErr error
	if !e.dispatch(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		switch e.state {
		case StateClosed:
			startErr = ErrClosed
		case StateUninitialized:
			e.state = StateSyncing
		default:
			startErr = errAlreadyStarted
		}
	}) {
		return ErrClosed
	}
	if startErr != nil {
		return startErr
	}

	list, err := e.fetchSnapshotWithRetry(ctx)
	if err != nil {
		e.dispatch(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.state == StateSyncing {
				e.state = StateUninitialized
			}
		})
		return err
	}

	if !e.dispatch(func() {
		e.mu.Lock()
		if e.state != StateSyncing {
			e.mu.Unlock()
			return
		}
		added := e.view.applyServerUnread(list)
		e.state = StateLive
		added = append(added, e.drainDeferredLocked()...)
		e.mu.Unlock()
		e.notify(added)
	}) {
		return ErrClosed
	}

	e.logger.Info("Engine live", zap.Int("unread", e.UnreadCount()))
	return nil
}

// Push feeds one notification from the live connection into the view. While
// the engine is syncing or reconnecting, pushes are queued and applied in
// arrival order once the snapshot lands; after Close they are dropped.
func (e *Engine) Push(n model.Notification) {
	e.post(func() {
		e.mu.Lock()
		switch e.state {
		case StateClosed, StateUninitialized:
			e.mu.Unlock()
			return
		case StateLive:
			isNew := e.view.merge(n)
			e.mu.Unlock()
			if isNew {
				e.notify([]model.Notification{n})
			}
		default:
			e.deferred = append(e.deferred, n)
			e.mu.Unlock()
		}
	})
}

func (e *Engine) drainDeferredLocked() []model.Notification {
	var added []model.Notification
	for _, n := range e.deferred {
		if e.view.merge(n) {
			added = append(added, n)
		}
	}
	e.deferred = nil
	return added
}

// notify runs the new-notification callback outside the view lock.
func (e *Engine) notify(ns []model.Notification) {
	if e.cfg.OnNotification == nil {
		return
	}
	for _, n := range ns {
		e.cfg.OnNotification(n)
	}
}

// MarkAsRead optimistically transitions the notification to read, then
// confirms the transition with the store. On NotFound or a transport failure
// the optimistic update is rolled back before the error is returned; on
// AlreadyRead the local state is already converged and nil is returned.
func (e *Engine) MarkAsRead(ctx context.Context, id string) error {
	resp := make(chan error, 1)
	if !e.post(func() {
		e.mu.Lock()
		if e.state == StateClosed {
			e.mu.Unlock()
			resp <- ErrClosed
			return
		}
		ent := e.view.get(id)
		if ent == nil {
			e.mu.Unlock()
			resp <- store.ErrNotFound
			return
		}
		if ent.n.Read {
			e.mu.Unlock()
			resp <- nil
			return
		}

		// Tentative apply, visible immediately.
		ent.n.Read = true
		ent.pending = true
		e.view.unread--
		e.mu.Unlock()

		go e.confirmMarkRead(ctx, id, resp)
	}) {
		return ErrClosed
	}

	select {
	case err := <-resp:
		return err
	case <-e.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) confirmMarkRead(ctx context.Context, id string, resp chan<- error) {
	err := e.client.MarkRead(ctx, id)

	if !e.post(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateClosed {
			resp <- ErrClosed
			return
		}
		ent := e.view.get(id)
		if ent == nil {
			resp <- err
			return
		}

		switch {
		case err == nil, errors.Is(err, store.ErrAlreadyRead):
			// Confirmed (or the server already knew). A resync may have
			// reverted the tentative read in the meantime; re-apply.
			if !ent.n.Read {
				ent.n.Read = true
				e.view.unread--
			}
			ent.pending = false
			resp <- nil
		default:
			// NotFound or transport failure: roll back, unless a resync
			// already settled this entry authoritatively.
			if ent.pending && ent.n.Read {
				ent.n.Read = false
				e.view.unread++
			}
			ent.pending = false
			e.logger.Warn("Mark-as-read rolled back",
				zap.String("id", id),
				zap.Error(err),
			)
			resp <- err
		}
	}) {
		resp <- ErrClosed
	}
}

// OnDisconnect moves a Live engine to Reconnecting, retaining the view, and
// schedules a bounded background resync.
func (e *Engine) OnDisconnect() {
	e.post(func() {
		e.mu.Lock()
		if e.state != StateLive {
			e.mu.Unlock()
			return
		}
		e.state = StateReconnecting
		e.mu.Unlock()

		e.logger.Warn("Connection lost, reconciling in background")
		go func() {
			if err := e.Resync(e.ctx); err != nil && e.cfg.OnStale != nil {
				e.cfg.OnStale(err)
			}
		}()
	})
}

// Resync fetches a fresh unread snapshot within the retry budget and merges
// it server-authoritatively, returning the engine to Live. Concurrent calls
// collapse into one; the merge is idempotent so an extra resync is harmless.
func (e *Engine) Resync(ctx context.Context) error {
	if !e.resyncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.resyncing.Store(false)

	list, err := e.fetchSnapshotWithRetry(ctx)
	if err != nil {
		return err
	}

	if !e.dispatch(func() {
		e.mu.Lock()
		if e.state != StateReconnecting && e.state != StateLive {
			e.mu.Unlock()
			return
		}
		added := e.view.applyServerUnread(list)
		e.state = StateLive
		added = append(added, e.drainDeferredLocked()...)
		e.mu.Unlock()
		e.notify(added)
	}) {
		return ErrClosed
	}
	return nil
}

func (e *Engine) fetchSnapshotWithRetry(ctx context.Context) ([]model.Notification, error) {
	delay := e.cfg.ResyncDelay
	var lastErr error

	for attempt := 1; attempt <= e.cfg.ResyncMaxRetries; attempt++ {
		list, err := e.client.ListUnread(ctx)
		if err == nil {
			return list, nil
		}
		lastErr = err
		e.logger.Warn("Snapshot fetch failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", e.cfg.ResyncMaxRetries),
			zap.Error(err),
		)

		if attempt == e.cfg.ResyncMaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrClosed
		case <-e.ctx.Done():
			return nil, ErrClosed
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w: %v", ErrSyncExhausted, lastErr)
}

// Close is terminal: it cancels any in-flight snapshot or mark-read awaits
// and stops accepting merges. Safe to call more than once.
func (e *Engine) Close() {
	e.dispatch(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.state = StateClosed
	})
	e.cancel()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns a copy of the ordered view, newest first.
func (e *Engine) Snapshot() []model.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view.snapshot()
}

// UnreadCount returns the number of unread entries in the view.
func (e *Engine) UnreadCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view.unread
}
