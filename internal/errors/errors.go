package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/weiwangfds/javanotes/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess        ErrorCode = 0    // 成功
	ErrInternalServer ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams  ErrorCode = 1001 // 参数错误
	ErrNotFound       ErrorCode = 1004 // 资源未找到

	// 文件记录相关错误码 (2000-2999)
	ErrRecordNotFound     ErrorCode = 2000 // 记录未找到
	ErrFileTypeNotAllowed ErrorCode = 2001 // 扩展名不符合要求，入库被拒绝
	ErrNoFiles            ErrorCode = 2002 // 上传批次为空
	ErrInvalidCategory    ErrorCode = 2003 // 分类不在允许列表中
	ErrFileReadFailed     ErrorCode = 2004 // 读取上传内容失败
	ErrFileSizeTooLarge   ErrorCode = 2005 // 文件大小超限

	// 存储相关错误码 (4000-4999)
	ErrPersistFailed      ErrorCode = 4000 // 写入持久化存储失败
	ErrStateCorrupted     ErrorCode = 4001 // 持久化数据无法解析
	ErrStorageUnavailable ErrorCode = 4002 // 持久化存储不可读

	// 笔记相关错误码 (5000-5999)
	ErrNoteNotFound ErrorCode = 5000 // 笔记未找到
)

// AppError 应用错误结构体
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持 errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithOriginalError 添加原始错误
func (e *AppError) WithOriginalError(err error) *AppError {
	e.OriginalError = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// New 创建新的应用错误，消息取自默认语言
func New(code ErrorCode) *AppError {
	return &AppError{
		Code:    code,
		Message: GetErrorMessage(code),
	}
}

// NewWithDetails 创建带详细信息的应用错误
func NewWithDetails(code ErrorCode, details string) *AppError {
	return New(code).WithDetails(details)
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, err error) *AppError {
	return New(code).WithOriginalError(err)
}

// GetAppError 从错误链中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:        "success",
	ErrInternalServer: "internal_server_error",
	ErrInvalidParams:  "invalid_params",
	ErrNotFound:       "not_found",

	ErrRecordNotFound:     "record_not_found",
	ErrFileTypeNotAllowed: "file_type_not_allowed",
	ErrNoFiles:            "no_files",
	ErrInvalidCategory:    "invalid_category",
	ErrFileReadFailed:     "file_read_failed",
	ErrFileSizeTooLarge:   "file_size_too_large",

	ErrPersistFailed:      "persist_failed",
	ErrStateCorrupted:     "state_corrupted",
	ErrStorageUnavailable: "storage_unavailable",

	ErrNoteNotFound: "note_not_found",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
