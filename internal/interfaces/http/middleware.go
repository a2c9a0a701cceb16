package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
)

// skipPaths are high-frequency probe routes kept out of the request log.
var skipPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// requestLogger logs every request with method, path, status and duration,
// and feeds the HTTP metrics.  5xx responses log at error level, 4xx at
// warn.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if _, skip := skipPaths[path]; skip {
			return
		}

		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(c.Request.Method, path, status, duration)
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.String("remote_addr", c.ClientIP()),
		}
		switch {
		case status >= 500:
			s.logger.Error("request failed", fields...)
		case status >= 400:
			s.logger.Warn("request rejected", fields...)
		default:
			s.logger.Info("request served", fields...)
		}
	}
}
