package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/i18n"
)

// 上下文中使用的键
const (
	RequestIDKey = "request_id"
	LangKey      = "lang"
)

// Response 统一返回值结构体
type Response struct {
	// 状态码，0表示成功，非0为 internal/errors 中的错误码
	Code int `json:"code"`
	// 响应消息
	Message string `json:"message"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty"`
	// 时间戳
	Timestamp int64 `json:"timestamp"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, apperrors.GetErrorMessageWithLang(apperrors.ErrSuccess, Lang(c)), data)
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      int(apperrors.ErrSuccess),
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTime().Unix(),
	})
}

// Error 错误响应
// 参数:
//   - status: HTTP 状态码
//   - code: 业务错误码
//   - message: 错误消息，为空时使用错误码对应的消息
func Error(c *gin.Context, status int, code apperrors.ErrorCode, message string) {
	ErrorWithData(c, status, code, message, nil)
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, status int, code apperrors.ErrorCode, message string, data interface{}) {
	if message == "" {
		message = apperrors.GetErrorMessageWithLang(code, Lang(c))
	}
	c.JSON(status, Response{
		Code:      int(code),
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTime().Unix(),
	})
}

// FromError 根据错误链中的错误码选择 HTTP 状态码并返回错误响应
// 不是 AppError 的错误按服务器内部错误处理，不向客户端暴露原始信息
func FromError(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		_ = c.Error(err)
		InternalServerError(c, "")
		return
	}

	message := apperrors.GetErrorMessageWithLang(appErr.Code, Lang(c))
	if appErr.Details != "" && appErr.OriginalError == nil {
		message += ": " + appErr.Details
	}
	if appErr.OriginalError != nil {
		_ = c.Error(appErr)
	}
	Error(c, StatusFor(appErr.Code), appErr.Code, message)
}

// StatusFor 错误码对应的 HTTP 状态码
func StatusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrSuccess:
		return http.StatusOK
	case apperrors.ErrNotFound, apperrors.ErrRecordNotFound, apperrors.ErrNoteNotFound:
		return http.StatusNotFound
	case apperrors.ErrInvalidParams, apperrors.ErrFileTypeNotAllowed, apperrors.ErrNoFiles,
		apperrors.ErrInvalidCategory, apperrors.ErrFileReadFailed:
		return http.StatusBadRequest
	case apperrors.ErrFileSizeTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, apperrors.ErrInvalidParams, message)
}

// NotFound 404错误响应
func NotFound(c *gin.Context, code apperrors.ErrorCode) {
	Error(c, http.StatusNotFound, code, "")
}

// InternalServerError 500错误响应
func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, apperrors.ErrInternalServer, message)
}

// Lang 当前请求使用的语言
func Lang(c *gin.Context) string {
	if v, ok := c.Get(LangKey); ok {
		if lang, ok := v.(string); ok {
			return lang
		}
	}
	return i18n.GetInstance().GetDefaultLanguage()
}

// getRequestID 获取请求ID
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// getCurrentTime 获取当前时间，测试时可替换
var getCurrentTime = time.Now
