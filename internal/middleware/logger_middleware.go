// Package middleware 提供 gin 中间件
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/weiwangfds/javanotes/internal/i18n"
	"github.com/weiwangfds/javanotes/internal/logger"
	"github.com/weiwangfds/javanotes/internal/response"
)

// RequestIDHeader 请求ID使用的请求头和响应头
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength 客户端传入的请求ID超过该长度时重新生成
const maxRequestIDLength = 64

// RequestID 为每个请求设置请求ID
// 优先使用客户端传入的 X-Request-ID，否则生成一个 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Language 根据 Accept-Language 选择响应语言
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18n.GetInstance().FromAcceptLanguage(c.GetHeader("Accept-Language"))
		c.Set(response.LangKey, lang)
		c.Next()
	}
}

// AccessLogConfig 访问日志配置
type AccessLogConfig struct {
	// SkipPaths 不记录日志的路径
	SkipPaths []string
}

// DefaultAccessLogConfig 默认配置
func DefaultAccessLogConfig() *AccessLogConfig {
	return &AccessLogConfig{
		SkipPaths: []string{"/health", "/favicon.ico"},
	}
}

// AccessLog 访问日志中间件
// 请求处理完成后按状态码选择日志级别：5xx 为 Error，4xx 为 Warn，其余为 Info
// 不记录请求体，上传的文件内容不会进入日志
func AccessLog(config ...*AccessLogConfig) gin.HandlerFunc {
	cfg := DefaultAccessLogConfig()
	if len(config) > 0 && config[0] != nil {
		cfg = config[0]
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString(response.RequestIDKey),
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"raw_query":  raw,
			"size":       c.Writer.Size(),
			"user_agent": c.Request.UserAgent(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP Request")
		case status >= 400:
			entry.Warn("HTTP Request")
		default:
			entry.Info("HTTP Request")
		}
	}
}
