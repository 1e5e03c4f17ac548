package middleware

import (
	"time"

	"carwash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Logger writes one line per request through pkg/logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			logger.Errorf("[%s] %s %s %d %v %q - Internal Server Error",
				c.ClientIP(), c.Request.Method, c.Request.RequestURI, status, latency, c.Request.UserAgent())
		case status >= 400:
			logger.Warnf("[%s] %s %s %d %v %q - Client Error",
				c.ClientIP(), c.Request.Method, c.Request.RequestURI, status, latency, c.Request.UserAgent())
		default:
			logger.Infof("[%s] %s %s %d %v %q",
				c.ClientIP(), c.Request.Method, c.Request.RequestURI, status, latency, c.Request.UserAgent())
		}
	}
}
