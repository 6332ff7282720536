package middleware

import (
	"strconv"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records a counter and latency histogram per route. The route
// template (not the raw path) is used as the label to keep cardinality low.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RequestsTotal.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.RequestDuration.WithLabelValues(
			c.Request.Method, route,
		).Observe(time.Since(start).Seconds())
	}
}
