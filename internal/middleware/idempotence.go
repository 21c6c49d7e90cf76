package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence returns a middleware that rejects duplicate non-GET requests
// carrying the same x-idempotence key within the TTL. Clients that do not
// send the header are unaffected.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key := c.GetHeader(idempotenceHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := fmt.Sprintf("gb:idempotence:%s", key)

		set, err := rdb.SetNX(ctx, redisKey, "0", idempotenceTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !set {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      0,
				"code":    http.StatusConflict,
				"message": "duplicate request within 60s",
			})
			return
		}

		c.Next()

		// Mark the key as completed so a retry after failure is allowed.
		if c.Writer.Status() >= http.StatusInternalServerError {
			rdb.Del(ctx, redisKey)
		} else {
			rdb.Set(ctx, redisKey, "1", idempotenceTTL)
		}
	}
}
