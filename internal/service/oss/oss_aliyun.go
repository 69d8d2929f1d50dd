package oss

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/weiwangfds/javanotes/config"
	"github.com/weiwangfds/javanotes/internal/logger"
)

// AliyunOSSProvider 阿里云OSS提供商实现
type AliyunOSSProvider struct {
	client *oss.Client // 阿里云OSS客户端实例
	bucket *oss.Bucket // OSS存储桶实例
	config config.OSSConfig
}

// NewAliyunOSSProvider 创建阿里云OSS提供商实例
// 未配置 endpoint 时按区域拼接默认域名
func NewAliyunOSSProvider(cfg config.OSSConfig) (*AliyunOSSProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
	}
	logger.Infof("[aliyun] creating client, endpoint: %s, bucket: %s", endpoint, cfg.Bucket)

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	return &AliyunOSSProvider{
		client: client,
		bucket: bucket,
		config: cfg,
	}, nil
}

// Name 提供商名称
func (p *AliyunOSSProvider) Name() string { return "aliyun" }

// UploadFile 上传文件到阿里云OSS
func (p *AliyunOSSProvider) UploadFile(objectKey string, reader io.Reader, size int64, contentType string) error {
	options := []oss.Option{}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if size >= 0 {
		options = append(options, oss.ContentLength(size))
	}

	if err := p.bucket.PutObject(objectKey, reader, options...); err != nil {
		logger.Errorf("[aliyun] upload failed, key: %s, error: %v", objectKey, err)
		return fmt.Errorf("failed to upload file to aliyun oss: %w", err)
	}
	logger.Debugf("[aliyun] uploaded %s", objectKey)
	return nil
}

// DownloadFile 从阿里云OSS下载文件
func (p *AliyunOSSProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(objectKey)
	if err != nil {
		var serr oss.ServiceError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		logger.Errorf("[aliyun] download failed, key: %s, error: %v", objectKey, err)
		return nil, fmt.Errorf("failed to download file from aliyun oss: %w", err)
	}
	return body, nil
}

// FileExists 检查文件是否存在
func (p *AliyunOSSProvider) FileExists(objectKey string) (bool, error) {
	exists, err := p.bucket.IsObjectExist(objectKey)
	if err != nil {
		return false, fmt.Errorf("failed to check file existence in aliyun oss: %w", err)
	}
	return exists, nil
}

// TestConnection 通过获取存储桶信息验证连接
func (p *AliyunOSSProvider) TestConnection() error {
	if _, err := p.client.GetBucketInfo(p.config.Bucket); err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	return nil
}
