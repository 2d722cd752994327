package handlers

import (
	"net/http"

	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var voiceUpgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// HandleVoiceWebSocket 语音连接入口，uid 可选，缺省时使用默认用户
func (h *Handlers) HandleVoiceWebSocket(c *gin.Context) {
	conn, err := voiceUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	info := voice.ClientInfo{
		UserID:     c.Query("uid"),
		RemoteAddr: c.ClientIP(),
	}
	h.voice.HandleWebSocket(c.Request.Context(), conn, info)
}
