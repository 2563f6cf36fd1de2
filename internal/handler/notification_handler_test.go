package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/delivery"
	"github.com/gamefrenza/AI-Legal-Agent/internal/handler"
	"github.com/gamefrenza/AI-Legal-Agent/internal/httpserver"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/service"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

const testSecret = "test-secret"

type fixture struct {
	engine *gin.Engine
	store  *store.MemoryStore
	hub    *delivery.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memStore := store.NewMemoryStore()
	hub := delivery.NewHub(zap.NewNop())
	notifier := service.NewNotifier(memStore, hub, zap.NewNop())
	h := handler.NewNotificationHandler(notifier, zap.NewNop())

	r := gin.New()
	api := r.Group("/api")
	api.Use(httpserver.AuthMiddleware(testSecret))
	{
		api.GET("/notifications/unread", h.GetUnread)
		api.POST("/notifications/:id/read", h.MarkRead)

		producer := api.Group("/")
		producer.Use(httpserver.RequireProducer())
		{
			producer.POST("/notifications/send", h.Send)
			producer.POST("/notifications/broadcast", h.Broadcast)
		}
	}

	return &fixture{engine: r, store: memStore, hub: hub}
}

func token(t *testing.T, recipientID, scope string) string {
	t.Helper()
	tok, err := util.GenerateJWT(recipientID, scope, testSecret)
	require.NoError(t, err)
	return tok
}

func (f *fixture) request(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) seed(t *testing.T, recipientID, message string) model.Notification {
	t.Helper()
	n, err := f.store.Create(context.Background(), store.CreateParams{
		RecipientID: recipientID,
		Type:        model.TypeComplianceIssue,
		Severity:    model.SeverityHigh,
		Message:     message,
	})
	require.NoError(t, err)
	return n
}

func TestGetUnreadRequiresToken(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/notifications/unread", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUnreadReturnsOwnFeedNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "user-1", "first")
	f.seed(t, "user-1", "second")
	f.seed(t, "user-2", "other feed")

	w := f.request(t, http.MethodGet, "/api/notifications/unread", token(t, "user-1", util.ScopeRecipient), "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Notifications []model.Notification `json:"notifications"`
		Count         int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "second", body.Notifications[0].Message)
	assert.Equal(t, "first", body.Notifications[1].Message)
}

func TestMarkReadLifecycle(t *testing.T) {
	f := newFixture(t)
	n := f.seed(t, "user-1", "msg")
	tok := token(t, "user-1", util.ScopeRecipient)

	w := f.request(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"read"`)

	// Repeat succeeds as an idempotent no-op.
	w = f.request(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"already_read"`)
}

func TestMarkReadUnknownAndForeignLookAlike(t *testing.T) {
	f := newFixture(t)
	n := f.seed(t, "user-1", "private")

	// Unknown id.
	w := f.request(t, http.MethodPost, "/api/notifications/ghost/read",
		token(t, "user-1", util.ScopeRecipient), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Someone else's notification must look identical to an unknown one.
	w = f.request(t, http.MethodPost, "/api/notifications/"+n.ID+"/read",
		token(t, "user-2", util.ScopeRecipient), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendRequiresProducerScope(t *testing.T) {
	f := newFixture(t)
	body := `{"recipient_id":"user-1","type":"security_alert","severity":"critical","message":"breach"}`

	w := f.request(t, http.MethodPost, "/api/notifications/send",
		token(t, "user-1", util.ScopeRecipient), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.request(t, http.MethodPost, "/api/notifications/send",
		token(t, "svc-producer", util.ScopeProducer), body)
	require.Equal(t, http.StatusCreated, w.Code)

	list, err := f.store.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "breach", list[0].Message)
}

func TestSendRejectsUnknownSeverity(t *testing.T) {
	f := newFixture(t)
	body := `{"recipient_id":"user-1","type":"security_alert","severity":"urgent","message":"breach"}`

	w := f.request(t, http.MethodPost, "/api/notifications/send",
		token(t, "svc-producer", util.ScopeProducer), body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type recordingSession struct {
	mu       sync.Mutex
	received []model.Notification
}

func (r *recordingSession) Send(n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, n)
	return nil
}

func (r *recordingSession) Close() error { return nil }

func TestBroadcastTargetsConnectedRecipients(t *testing.T) {
	f := newFixture(t)

	sess := &recordingSession{}
	f.hub.Register("user-1", sess)

	body := `{"type":"security_alert","severity":"high","message":"maintenance"}`
	w := f.request(t, http.MethodPost, "/api/notifications/broadcast",
		token(t, "svc-producer", util.ScopeProducer), body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"delivered":1`)

	// Pushed live and durably stored.
	sess.mu.Lock()
	require.Len(t, sess.received, 1)
	sess.mu.Unlock()

	list, err := f.store.ListUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Disconnected recipients get nothing.
	list, err = f.store.ListUnread(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, list)
}
