package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamefrenza/AI-Legal-Agent/internal/engine"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
)

var errNetwork = errors.New("connection refused")

// fakeClient is a scriptable StoreClient.
type fakeClient struct {
	mu        sync.Mutex
	listFn    func() ([]model.Notification, error)
	markFn    func(id string) error
	listCalls int
}

func (f *fakeClient) ListUnread(ctx context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	fn := f.listFn
	f.listCalls++
	f.mu.Unlock()
	if fn == nil {
		return []model.Notification{}, nil
	}
	return fn()
}

func (f *fakeClient) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	fn := f.markFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(id)
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeClient) setList(fn func() ([]model.Notification, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFn = fn
}

func notif(id string, age time.Duration, read bool) model.Notification {
	return model.Notification{
		ID:          id,
		RecipientID: "user-1",
		Type:        model.TypeDocumentUpdate,
		Severity:    model.SeverityMedium,
		Message:     "msg " + id,
		Timestamp:   time.Now().UTC().Add(-age),
		Read:        read,
	}
}

func fastConfig() engine.Config {
	return engine.Config{
		ResyncMaxRetries: 2,
		ResyncDelay:      time.Millisecond,
	}
}

func startLive(t *testing.T, client *fakeClient, cfg engine.Config) *engine.Engine {
	t.Helper()
	e := engine.New(client, nil, cfg)
	t.Cleanup(e.Close)
	require.NoError(t, e.Start(context.Background()))
	require.Equal(t, engine.StateLive, e.State())
	return e
}

func TestStartSyncsUnreadSnapshot(t *testing.T) {
	older := notif("n1", 2*time.Minute, false)
	newer := notif("n2", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{newer, older}, nil
		},
	}

	e := startLive(t, client, fastConfig())

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "n2", snap[0].ID)
	assert.Equal(t, "n1", snap[1].ID)
	assert.Equal(t, 2, e.UnreadCount())
}

func TestStartExhaustsRetryBudget(t *testing.T) {
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return nil, errNetwork
		},
	}
	e := engine.New(client, nil, fastConfig())
	defer e.Close()

	err := e.Start(context.Background())
	require.ErrorIs(t, err, engine.ErrSyncExhausted)
	assert.Equal(t, 2, client.calls())
	assert.Equal(t, engine.StateUninitialized, e.State())

	// The failed start is recoverable.
	client.setList(func() ([]model.Notification, error) {
		return []model.Notification{}, nil
	})
	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, engine.StateLive, e.State())
}

func TestPushDuplicateDeliveryMergesOnce(t *testing.T) {
	client := &fakeClient{}
	e := startLive(t, client, fastConfig())

	n := notif("n1", time.Minute, false)
	e.Push(n)
	e.Push(n)
	e.Push(n)

	require.Eventually(t, func() bool {
		return len(e.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, e.UnreadCount())
}

func TestPushKeepsViewNewestFirst(t *testing.T) {
	client := &fakeClient{}
	e := startLive(t, client, fastConfig())

	e.Push(notif("old", time.Hour, false))
	e.Push(notif("new", time.Minute, false))
	e.Push(notif("middle", 30*time.Minute, false))

	require.Eventually(t, func() bool {
		return len(e.Snapshot()) == 3
	}, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.Equal(t, "new", snap[0].ID)
	assert.Equal(t, "middle", snap[1].ID)
	assert.Equal(t, "old", snap[2].ID)
}

func TestPushesDuringSyncApplyAfterSnapshot(t *testing.T) {
	release := make(chan struct{})
	snapshot := notif("snap", time.Hour, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			<-release
			return []model.Notification{snapshot}, nil
		},
	}
	e := engine.New(client, nil, fastConfig())
	defer e.Close()

	startDone := make(chan error, 1)
	go func() { startDone <- e.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return e.State() == engine.StateSyncing
	}, time.Second, 5*time.Millisecond)

	pushed := notif("pushed", time.Minute, false)
	e.Push(pushed)
	close(release)

	require.NoError(t, <-startDone)

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "pushed", snap[0].ID)
	assert.Equal(t, "snap", snap[1].ID)
	assert.Equal(t, 2, e.UnreadCount())
}

func TestMarkAsReadConfirmed(t *testing.T) {
	n := notif("n1", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n}, nil
		},
	}
	e := startLive(t, client, fastConfig())

	require.NoError(t, e.MarkAsRead(context.Background(), "n1"))

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Read)
	assert.Equal(t, 0, e.UnreadCount())

	// Second call is a local no-op.
	require.NoError(t, e.MarkAsRead(context.Background(), "n1"))
	assert.Equal(t, 0, e.UnreadCount())
}

func TestMarkAsReadRollsBackOnTransportFailure(t *testing.T) {
	n := notif("n1", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n}, nil
		},
		markFn: func(id string) error {
			return errNetwork
		},
	}
	e := startLive(t, client, fastConfig())

	err := e.MarkAsRead(context.Background(), "n1")
	require.ErrorIs(t, err, errNetwork)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].Read, "rollback must restore unread")
	assert.Equal(t, 1, e.UnreadCount())
}

func TestMarkAsReadAlreadyReadConverges(t *testing.T) {
	n := notif("n1", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n}, nil
		},
		markFn: func(id string) error {
			return store.ErrAlreadyRead
		},
	}
	e := startLive(t, client, fastConfig())

	// The server already knew; locally this settles as read with no error.
	require.NoError(t, e.MarkAsRead(context.Background(), "n1"))
	assert.Equal(t, 0, e.UnreadCount())
	assert.True(t, e.Snapshot()[0].Read)
}

func TestMarkAsReadUnknownID(t *testing.T) {
	client := &fakeClient{}
	e := startLive(t, client, fastConfig())

	err := e.MarkAsRead(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResyncServerWins(t *testing.T) {
	n1 := notif("n1", 3*time.Minute, false)
	n2 := notif("n2", 2*time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n2, n1}, nil
		},
	}
	e := startLive(t, client, fastConfig())
	require.Equal(t, 2, e.UnreadCount())

	// Server state moved on: n1 was read elsewhere, n3 arrived while away.
	n3 := notif("n3", time.Minute, false)
	client.setList(func() ([]model.Notification, error) {
		return []model.Notification{n3, n2}, nil
	})

	require.NoError(t, e.Resync(context.Background()))

	snap := e.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "n3", snap[0].ID)
	assert.False(t, snap[0].Read)
	assert.Equal(t, "n2", snap[1].ID)
	assert.False(t, snap[1].Read)
	assert.Equal(t, "n1", snap[2].ID)
	assert.True(t, snap[2].Read, "absent from server snapshot means read elsewhere")
	assert.Equal(t, 2, e.UnreadCount())
}

func TestResyncRevertsLocalReadPresentOnServer(t *testing.T) {
	n1 := notif("n1", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n1}, nil
		},
	}
	e := startLive(t, client, fastConfig())

	// Locally read and confirmed, yet the next server snapshot still lists
	// n1 unread. The snapshot is authoritative.
	require.NoError(t, e.MarkAsRead(context.Background(), "n1"))
	require.NoError(t, e.Resync(context.Background()))

	assert.False(t, e.Snapshot()[0].Read)
	assert.Equal(t, 1, e.UnreadCount())
}

func TestOnDisconnectResyncsInBackground(t *testing.T) {
	n1 := notif("n1", 2*time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n1}, nil
		},
	}
	e := startLive(t, client, fastConfig())

	n2 := notif("n2", time.Minute, false)
	client.setList(func() ([]model.Notification, error) {
		return []model.Notification{n2, n1}, nil
	})

	e.OnDisconnect()

	require.Eventually(t, func() bool {
		return e.State() == engine.StateLive && len(e.Snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestOnDisconnectReportsStaleAfterBudget(t *testing.T) {
	client := &fakeClient{}
	stale := make(chan error, 1)
	cfg := fastConfig()
	cfg.OnStale = func(err error) { stale <- err }

	e := startLive(t, client, cfg)

	client.setList(func() ([]model.Notification, error) {
		return nil, errNetwork
	})
	e.OnDisconnect()

	select {
	case err := <-stale:
		assert.ErrorIs(t, err, engine.ErrSyncExhausted)
	case <-time.After(time.Second):
		t.Fatal("stale callback never fired")
	}

	// The last good view survives.
	assert.Equal(t, engine.StateReconnecting, e.State())
}

func TestCloseIsTerminal(t *testing.T) {
	client := &fakeClient{}
	e := startLive(t, client, fastConfig())
	e.Close()

	assert.Equal(t, engine.StateClosed, e.State())

	err := e.MarkAsRead(context.Background(), "n1")
	assert.ErrorIs(t, err, engine.ErrClosed)

	// Close twice is safe, and a closed engine cannot restart.
	e.Close()
	assert.ErrorIs(t, e.Start(context.Background()), engine.ErrClosed)
}

func TestOnNotificationFiresForNewEntriesOnly(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	cfg := fastConfig()
	cfg.OnNotification = func(n model.Notification) {
		mu.Lock()
		seen = append(seen, n.ID)
		mu.Unlock()
	}

	n1 := notif("n1", time.Minute, false)
	client := &fakeClient{
		listFn: func() ([]model.Notification, error) {
			return []model.Notification{n1}, nil
		},
	}
	e := startLive(t, client, cfg)

	e.Push(n1) // duplicate, must not fire
	e.Push(notif("n2", time.Second, false))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"n1", "n2"}, seen)
}
