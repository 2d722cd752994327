package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimitMiddleware 按客户端IP限流，rate 格式如 "60-M"
// 为空时不限流
func RateLimitMiddleware(rate string, logger *zap.Logger) (gin.HandlerFunc, error) {
	if rate == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Warn("请求过于频繁", zap.String("ip", c.ClientIP()), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Error("限流器异常", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limiter failure"})
		}),
	), nil
}
