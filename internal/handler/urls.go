package handlers

import (
	"github.com/code-100-precent/lingecho-vadasr/internal/listeners"
	"github.com/code-100-precent/lingecho-vadasr/pkg/config"
	"github.com/code-100-precent/lingecho-vadasr/pkg/metrics"
	"github.com/code-100-precent/lingecho-vadasr/pkg/middleware"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers HTTP 路由处理器
type Handlers struct {
	voice    *voice.Handler
	metrics  *metrics.Metrics
	listener *listeners.VoiceListener
	cfg      *config.Config
	logger   *zap.Logger
}

func NewHandlers(cfg *config.Config, vh *voice.Handler, m *metrics.Metrics, l *listeners.VoiceListener, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{voice: vh, metrics: m, listener: l, cfg: cfg, logger: logger}
}

// Register 注册全部路由
func (h *Handlers) Register(engine *gin.Engine) error {
	engine.Use(middleware.LoggerMiddleware(h.logger, h.metrics))

	limit, err := middleware.RateLimitMiddleware(h.cfg.WSRateLimit, h.logger)
	if err != nil {
		return err
	}
	engine.GET(h.cfg.WSPath, limit, h.HandleVoiceWebSocket)
	engine.GET("/health", h.HealthCheck)
	engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	r := engine.Group(h.cfg.APIPrefix)
	r.POST("/notify", h.Notify)
	r.GET("/sessions", h.ListSessions)
	return nil
}
