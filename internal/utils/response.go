package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一的 JSON 返回结构，code 为 0 表示成功
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "ok", Data: data})
}

// Error 写错误响应，业务码沿用 HTTP 状态码
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Msg: msg})
}

// Abort 写错误响应并终止后续中间件
func Abort(c *gin.Context, status int, msg string) {
	Error(c, status, msg)
	c.Abort()
}
