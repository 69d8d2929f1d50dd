// Package oss 封装各家对象存储服务
// 记录列表可以直接持久化到对象存储，或作为镜像副本同步过去
package oss

import (
	"errors"
	"fmt"
	"io"

	"github.com/weiwangfds/javanotes/config"
)

var (
	// ErrObjectNotFound 对象不存在
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnsupportedProvider 不支持的提供商
	ErrUnsupportedProvider = errors.New("unsupported oss provider")
)

// Provider OSS提供商接口
type Provider interface {
	// Name 提供商名称，用于日志
	Name() string

	// UploadFile 上传对象，已存在时覆盖
	UploadFile(objectKey string, reader io.Reader, size int64, contentType string) error

	// DownloadFile 下载对象，不存在时返回 ErrObjectNotFound
	DownloadFile(objectKey string) (io.ReadCloser, error)

	// FileExists 检查对象是否存在
	FileExists(objectKey string) (bool, error)

	// TestConnection 测试连接
	TestConnection() error
}

// CreateProvider 根据配置创建OSS提供商实例
func CreateProvider(cfg config.OSSConfig) (Provider, error) {
	switch cfg.Provider {
	case "aliyun":
		return NewAliyunOSSProvider(cfg)
	case "tencent":
		return NewTencentCOSProvider(cfg)
	case "qiniu":
		return NewQiniuKodoProvider(cfg)
	case "minio":
		return NewMinioProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
