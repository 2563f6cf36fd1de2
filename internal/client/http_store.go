// Package client is the consumer side of the notification service: a remote
// store client over HTTP and a WebSocket listener that feeds the
// reconciliation engine.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/circuitbreaker"
)

// ErrTransportFailure wraps network and server errors on the store client.
// The caller retries within its budget; the sentinel lets it distinguish
// transport trouble from domain outcomes like NotFound.
var ErrTransportFailure = errors.New("notification transport failure")

// HTTPStore talks to the notification service REST API on behalf of one
// recipient. It satisfies the engine's StoreClient surface.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHTTPStore(baseURL, token string, logger *zap.Logger) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		token:   token,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:  logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPStore) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	var resp *http.Response
	err = s.breaker.Execute(func() error {
		var derr error
		resp, derr = s.client.Do(req)
		if derr != nil {
			return derr
		}
		// 5xx counts against the breaker, 4xx is a domain outcome.
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return resp, nil
}

// ListUnread fetches the recipient's unread feed, newest first.
func (s *HTTPStore) ListUnread(ctx context.Context) ([]model.Notification, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/notifications/unread")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransportFailure, resp.StatusCode)
	}

	var body struct {
		Notifications []model.Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTransportFailure, err)
	}
	if body.Notifications == nil {
		body.Notifications = []model.Notification{}
	}
	return body.Notifications, nil
}

// MarkRead transitions one notification to read on the server. Maps the
// server's domain outcomes back onto the store sentinels.
func (s *HTTPStore) MarkRead(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/notifications/"+id+"/read")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrTransportFailure, err)
		}
		if body.Status == "already_read" {
			return store.ErrAlreadyRead
		}
		return nil
	case http.StatusNotFound:
		return store.ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransportFailure, resp.StatusCode)
	}
}
