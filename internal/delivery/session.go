package delivery

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// WSSession adapts a WebSocket connection to the Session interface.
// The write mutex serializes concurrent Sends onto the wire, which is what
// preserves per-recipient FIFO order on a single connection.
type WSSession struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func NewWSSession(conn *websocket.Conn) *WSSession {
	return &WSSession{
		conn:    conn,
		encoder: json.NewEncoder(conn),
	}
}

func (s *WSSession) Send(n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoder.Encode(n)
}

func (s *WSSession) Close() error {
	return s.conn.Close()
}
