package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/handler"
	"taskhub/internal/metrics"
	"taskhub/internal/model"
	"taskhub/internal/session"
)

// SessionResolver resolves an opaque token to its principal. Satisfied
// by session.Store.
type SessionResolver interface {
	Get(ctx context.Context, token string) (model.Principal, error)
}

// RequestLogger records every request with zap and feeds the HTTP
// metric vectors.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)

		route := c.FullPath()
		if route == "" {
			route = path
		}
		labels := []string{c.Request.Method, route, strconv.Itoa(status)}
		metrics.HTTPRequestCount.WithLabelValues(labels...).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(latency.Seconds())
	}
}

// RequireSession resolves the session token to a principal and aborts
// with 401 when there is none. Missing and expired tokens are treated
// identically.
func RequireSession(sessions SessionResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handler.SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		p, err := sessions.Get(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
				return
			}
			logger.Error("Session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
			return
		}

		c.Set(handler.PrincipalKey, p)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireSession.
// A non-admin gets 403, never a 404, so the gate outcome is distinct
// from "does not exist".
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := handler.CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}
		if p.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
