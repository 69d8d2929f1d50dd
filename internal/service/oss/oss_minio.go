package oss

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/weiwangfds/javanotes/config"
)

// MinioProvider 兼容S3协议的对象存储（MinIO、R2、S3等）
type MinioProvider struct {
	client *minio.Client
	bucket string
}

// NewMinioProvider 创建MinIO提供商实例并确认存储桶存在
func NewMinioProvider(cfg config.OSSConfig) (*MinioProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	found, err := mc.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !found {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &MinioProvider{
		client: mc,
		bucket: cfg.Bucket,
	}, nil
}

// Name 提供商名称
func (p *MinioProvider) Name() string { return "minio" }

// UploadFile 上传对象
func (p *MinioProvider) UploadFile(objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := p.client.PutObject(context.Background(), p.bucket, objectKey, reader, size, opts); err != nil {
		return fmt.Errorf("failed to upload file to minio: %w", err)
	}
	return nil
}

// DownloadFile 下载对象
// GetObject 是惰性的，需要先 Stat 才能拿到不存在的错误
func (p *MinioProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	obj, err := p.client.GetObject(context.Background(), p.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download file from minio: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download file from minio: %w", err)
	}
	return obj, nil
}

// FileExists 检查对象是否存在
func (p *MinioProvider) FileExists(objectKey string) (bool, error) {
	_, err := p.client.StatObject(context.Background(), p.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object in minio: %w", err)
	}
	return true, nil
}

// TestConnection 测试连接
func (p *MinioProvider) TestConnection() error {
	if _, err := p.client.BucketExists(context.Background(), p.bucket); err != nil {
		return fmt.Errorf("failed to test minio connection: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
