// Package response 统一 HTTP 响应结构
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Body 响应体
type Body struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Success 返回 200 与数据
func Success(c *gin.Context, data any) {
	SuccessWithStatus(c, http.StatusOK, data, "")
}

// SuccessWithStatus 返回指定状态码与数据
func SuccessWithStatus(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Body{Success: true, Message: message, Data: data, Timestamp: time.Now().UTC()})
}

// ErrorWithStatus 返回错误信息，可附带数据（如执行失败的订单）
func ErrorWithStatus(c *gin.Context, status int, message string, data any, errs ...string) {
	c.JSON(status, Body{Success: false, Message: message, Data: data, Errors: errs, Timestamp: time.Now().UTC()})
}
