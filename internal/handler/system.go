package handlers

import (
	"net/http"
	"strings"

	"github.com/code-100-precent/lingecho-vadasr/pkg/response"
	"github.com/code-100-precent/lingecho-vadasr/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type notifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// HealthCheck health check endpoint
func (h *Handlers) HealthCheck(c *gin.Context) {
	data := gin.H{
		"status":   "healthy",
		"sessions": h.voice.Registry().Len(),
	}
	if h.listener != nil {
		data["events"] = h.listener.Counts()
	}
	c.JSON(http.StatusOK, data)
}

// Notify 向所有在线连接推送通知
func (h *Handlers) Notify(c *gin.Context) {
	if !h.notifyAllowed(c) {
		response.AbortWithStatus(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "参数错误", err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		response.Fail(c, "参数错误", "text is empty")
		return
	}

	if err := h.voice.Notify(c.Request.Context(), text); err != nil {
		h.logger.Error("通知发送失败", zap.Error(err))
		response.AbortWithStatus(c, http.StatusBadGateway, "notify failed", nil)
		return
	}
	response.Success(c, "notification sent", nil)
}

// ListSessions 在线会话统计
func (h *Handlers) ListSessions(c *gin.Context) {
	stats := h.voice.Stats()
	items := make([]gin.H, 0, len(stats))
	for _, st := range stats {
		items = append(items, gin.H{
			"id":         st.ID,
			"userId":     st.UserID,
			"remoteAddr": st.RemoteAddr,
			"frames":     st.Frames,
			"utterances": st.Utterances,
			"ageMs":      st.Age.Milliseconds(),
			"idleMs":     st.Idle.Milliseconds(),
		})
	}
	response.Success(c, "ok", items)
}

// notifyAllowed 配置了令牌时校验 Bearer 令牌，否则只接受内网来源
func (h *Handlers) notifyAllowed(c *gin.Context) bool {
	if h.cfg.NotifyToken != "" {
		return c.GetHeader("Authorization") == "Bearer "+h.cfg.NotifyToken
	}
	return utils.IsInternalIP(c.ClientIP())
}
