package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trial-registry-api/pkg/middleware/requestid"
)

const requestStartKey = "request_start"

// WithResponseMeta records when the request entered the handler chain.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// ResponseMeta returns the envelope meta block for the current request.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta := map[string]interface{}{}
	if reqID := requestid.Value(c); reqID != "" {
		meta["request_id"] = reqID
	}
	if v, exists := c.Get(requestStartKey); exists {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	return meta
}
