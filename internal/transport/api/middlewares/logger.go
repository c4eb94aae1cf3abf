package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет по строке на запрос. Ошибки из контекста gin логируются вместе с запросом, в том числе приватные,
// которые клиенту не показываются.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	entry := l.WithFields(logrus.Fields{
		"component": "http",
		"module":    "request",
	})
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"uri":      c.Request.RequestURI,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"size":     c.Writer.Size(),
		}
		if client, ok := c.Get(CurrentClientKey); ok {
			fields["client"] = client
		}
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			fields["idempotencyKey"] = key
		}

		e := entry.WithFields(fields)
		switch {
		case len(c.Errors) > 0:
			e.WithError(c.Errors.Last()).Warn("request failed")
		case c.Writer.Status() >= 500: //nolint:mnd
			e.Error("request failed")
		default:
			e.Info("request")
		}
	}
}
