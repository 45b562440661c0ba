package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks responses as cacheable for maxAge. Authenticated content is
// cached privately so shared proxies never keep it. Handlers that fail override the
// header with no-store.
func CacheControl(maxAge time.Duration, private bool) gin.HandlerFunc {
	scope := "public"
	if private {
		scope = "private"
	}
	value := fmt.Sprintf("%s, max-age=%d, immutable", scope, int(maxAge/time.Second))
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
