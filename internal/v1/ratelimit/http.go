package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
)

// NewHTTPMiddleware returns a Gin middleware that enforces a per-IP limit on
// the wrapped routes. The rate uses the ulule formatted form, e.g. "30-M" for
// thirty requests per minute. Admission control here is against connection
// floods; per-message throttling on established sockets stays with
// MessageLimiter.
func NewHTTPMiddleware(rate string) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid http rate %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), parsed)

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		state, err := instance.Get(ctx, c.ClientIP())
		if err != nil {
			// Fail open: availability beats strictness for a memory store.
			logging.Error(ctx, "rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": state.Reset,
			})
			return
		}

		c.Next()
	}, nil
}
