package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/gamefrenza/AI-Legal-Agent/internal/delivery"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

// WSHandler upgrades GET /ws/notifications to a WebSocket session and keeps
// it registered with the hub until the peer goes away.
type WSHandler struct {
	hub       *delivery.Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewWSHandler(hub *delivery.Hub, jwtSecret string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Handle authenticates before the upgrade. Browser clients cannot set an
// Authorization header on a WebSocket dial, so the token query parameter is
// accepted as well.
func (h *WSHandler) Handle(c *gin.Context) {
	token := util.ExtractToken(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	identity, err := util.ParseJWT(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws := websocket.Handler(func(conn *websocket.Conn) {
		h.serve(identity.RecipientID, conn)
	})
	ws.ServeHTTP(c.Writer, c.Request)
}

// serve blocks for the lifetime of the connection. The server only pushes;
// inbound frames are drained and discarded so the read loop notices the
// close.
func (h *WSHandler) serve(recipientID string, conn *websocket.Conn) {
	sess := delivery.NewWSSession(conn)
	h.hub.Register(recipientID, sess)
	defer h.hub.Unregister(sess)

	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			if err != io.EOF {
				h.logger.Info("WebSocket closed",
					zap.String("recipient_id", recipientID),
					zap.Error(err),
				)
			}
			return
		}
	}
}
