package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamefrenza/AI-Legal-Agent/pkg/metrics"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/trace"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

// TraceMiddleware propagates the inbound trace id, minting one when the
// caller did not send any, and echoes it on the response.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}

		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)

		c.Next()
	}
}

// AuthMiddleware validates the bearer token and stores the resolved identity
// for handlers.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		identity, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// store identity in context so handlers can use it
		c.Set("identity", identity)

		c.Next()
	}
}

// RequireProducer gates producer-only endpoints. Runs after AuthMiddleware.
func RequireProducer() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("identity")
		if !ok || v.(util.Identity).Scope != util.ScopeProducer {
			c.JSON(http.StatusForbidden, gin.H{"error": "producer scope required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// MetricsMiddleware records request latency per route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
