package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamefrenza/AI-Legal-Agent/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	notificationHandler *handler.NotificationHandler,
	wsHandler *handler.WSHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live push channel (auth happens inside, before the upgrade)
	r.GET("/ws/notifications", wsHandler.Handle)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/notifications/unread", notificationHandler.GetUnread)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)

		producer := api.Group("/")
		producer.Use(RequireProducer())
		{
			producer.POST("/notifications/send", notificationHandler.Send)
			producer.POST("/notifications/broadcast", notificationHandler.Broadcast)
		}
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
