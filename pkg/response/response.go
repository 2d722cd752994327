package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success 统一成功返回
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
		"data": data,
	})
}

// Fail 统一失败返回，HTTP 状态码 400
func Fail(c *gin.Context, msg string, data interface{}) {
	AbortWithStatus(c, http.StatusBadRequest, msg, data)
}

// AbortWithStatus 指定状态码返回并中止后续处理
func AbortWithStatus(c *gin.Context, status int, msg string, data interface{}) {
	c.AbortWithStatusJSON(status, gin.H{
		"code": status,
		"msg":  msg,
		"data": data,
	})
}
