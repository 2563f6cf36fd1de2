package client

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/gamefrenza/AI-Legal-Agent/internal/engine"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// WSListener holds the live WebSocket connection to the notification service
// and feeds every pushed notification into the reconciliation engine. On
// connection loss it notifies the engine, redials with a fixed delay, and
// resyncs to cover the gap.
type WSListener struct {
	url       string
	origin    string
	token     string
	engine    *engine.Engine
	redialGap time.Duration
	logger    *zap.Logger
}

func NewWSListener(wsURL, origin, token string, eng *engine.Engine, logger *zap.Logger) *WSListener {
	return &WSListener{
		url:       wsURL,
		origin:    origin,
		token:     token,
		engine:    eng,
		redialGap: 2 * time.Second,
		logger:    logger,
	}
}

func (l *WSListener) dial() (*websocket.Conn, error) {
	config, err := websocket.NewConfig(l.url, l.origin)
	if err != nil {
		return nil, err
	}
	config.Header.Set("Authorization", "Bearer "+l.token)
	return websocket.DialConfig(config)
}

// Run blocks until ctx is cancelled, reconnecting as needed.
func (l *WSListener) Run(ctx context.Context) {
	for {
		conn, err := l.dial()
		if err != nil {
			l.logger.Warn("WebSocket dial failed",
				zap.String("url", l.url),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.redialGap):
			}
			continue
		}

		l.logger.Info("WebSocket connected", zap.String("url", l.url))

		// Anything pushed between the last disconnect and now lives only in
		// the store; the resync pulls it into the view.
		if err := l.engine.Resync(ctx); err != nil {
			l.logger.Warn("Post-connect resync failed", zap.Error(err))
		}

		l.readLoop(ctx, conn)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}

		l.engine.OnDisconnect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.redialGap):
		}
	}
}

func (l *WSListener) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	decoder := json.NewDecoder(conn)
	for {
		var n model.Notification
		if err := decoder.Decode(&n); err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}
		l.engine.Push(n)
	}
}
