package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/weiwangfds/javanotes/config"
)

// TencentCOSProvider 腾讯云COS提供商实现
type TencentCOSProvider struct {
	client *cos.Client
	config config.OSSConfig
}

// NewTencentCOSProvider 创建腾讯云COS提供商实例
func NewTencentCOSProvider(cfg config.OSSConfig) (*TencentCOSProvider, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		bucketURL = cfg.Endpoint
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	})

	return &TencentCOSProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name 提供商名称
func (p *TencentCOSProvider) Name() string { return "tencent" }

// UploadFile 上传文件到腾讯云COS
func (p *TencentCOSProvider) UploadFile(objectKey string, reader io.Reader, size int64, contentType string) error {
	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if size >= 0 {
		options.ObjectPutHeaderOptions.ContentLength = size
	}

	if _, err := p.client.Object.Put(context.Background(), objectKey, reader, options); err != nil {
		return fmt.Errorf("failed to upload file to tencent cos: %w", err)
	}
	return nil
}

// DownloadFile 从腾讯云COS下载文件
func (p *TencentCOSProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	resp, err := p.client.Object.Get(context.Background(), objectKey, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download file from tencent cos: %w", err)
	}
	return resp.Body, nil
}

// FileExists 检查文件是否存在
func (p *TencentCOSProvider) FileExists(objectKey string) (bool, error) {
	_, err := p.client.Object.Head(context.Background(), objectKey, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in tencent cos: %w", err)
	}
	return true, nil
}

// TestConnection 测试连接
func (p *TencentCOSProvider) TestConnection() error {
	if _, err := p.client.Bucket.Head(context.Background()); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}
