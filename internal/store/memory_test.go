package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
)

func create(t *testing.T, s store.Store, recipientID, message string) model.Notification {
	t.Helper()
	n, err := s.Create(context.Background(), store.CreateParams{
		RecipientID: recipientID,
		Type:        model.TypeComplianceIssue,
		Severity:    model.SeverityHigh,
		Message:     message,
	})
	require.NoError(t, err)
	return n
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	s := store.NewMemoryStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := create(t, s, "user-1", "msg")
		assert.False(t, seen[n.ID], "id %s assigned twice", n.ID)
		seen[n.ID] = true
	}
}

func TestCreateTimestampsNeverRegress(t *testing.T) {
	s := store.NewMemoryStore()

	var prev model.Notification
	for i := 0; i < 50; i++ {
		n := create(t, s, "user-1", "msg")
		if i > 0 {
			assert.False(t, n.Timestamp.Before(prev.Timestamp),
				"timestamp went backwards at create %d", i)
		}
		prev = n
	}
}

func TestListUnreadNewestFirst(t *testing.T) {
	s := store.NewMemoryStore()

	first := create(t, s, "user-1", "first")
	second := create(t, s, "user-1", "second")
	third := create(t, s, "user-1", "third")

	list, err := s.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, first.ID, list[2].ID)
}

func TestListUnreadEmptyFeed(t *testing.T) {
	s := store.NewMemoryStore()

	list, err := s.ListUnread(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListUnreadExcludesRead(t *testing.T) {
	s := store.NewMemoryStore()

	keep := create(t, s, "user-1", "keep")
	drop := create(t, s, "user-1", "drop")

	require.NoError(t, s.MarkRead(context.Background(), "user-1", drop.ID))

	list, err := s.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	n := create(t, s, "user-1", "msg")

	require.NoError(t, s.MarkRead(context.Background(), "user-1", n.ID))

	err := s.MarkRead(context.Background(), "user-1", n.ID)
	assert.ErrorIs(t, err, store.ErrAlreadyRead)
}

func TestMarkReadUnknownID(t *testing.T) {
	s := store.NewMemoryStore()

	err := s.MarkRead(context.Background(), "user-1", "no-such-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkReadForeignNotification(t *testing.T) {
	s := store.NewMemoryStore()
	n := create(t, s, "user-1", "private")

	// Another recipient must not be able to read or even probe it.
	err := s.MarkRead(context.Background(), "user-2", n.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
}

func TestFeedsAreIsolatedPerRecipient(t *testing.T) {
	s := store.NewMemoryStore()

	mine := create(t, s, "user-1", "mine")
	create(t, s, "user-2", "theirs")

	list, err := s.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}
