package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware 请求日志中间件，m 为空时不记录指标
func LoggerMiddleware(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method

		// 处理请求
		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.RecordHTTPRequest(method, route, strconv.Itoa(c.Writer.Status()), latency)
		}

		// 过滤监控相关路径和一般的 GET 请求
		// WebSocket 升级请求例外，连接建立需要留痕
		if strings.Contains(path, "/metrics") || strings.Contains(path, "/health") {
			return
		}
		if method == "GET" && !isUpgrade(c) {
			return
		}

		logger.Info("Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
		)
	}
}

func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
