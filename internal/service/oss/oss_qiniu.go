package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/javanotes/config"
	"github.com/weiwangfds/javanotes/internal/logger"
)

// QiniuKodoProvider 七牛云Kodo提供商实现
type QiniuKodoProvider struct {
	mac          *qbox.Mac       // 七牛云认证凭证
	bucketName   string          // 存储桶名称
	bucketDomain string          // 存储桶下载域名
	region       *storage.Region // 存储区域信息
	httpClient   *http.Client
}

// NewQiniuKodoProvider 创建七牛云Kodo提供商实例
// 参数:
//   - cfg: OSS配置信息，Endpoint 作为下载域名使用，为空时按区域生成
//
// 返回:
//   - *QiniuKodoProvider: 七牛云Kodo提供商实例
//   - error: 获取区域信息失败时的错误
func NewQiniuKodoProvider(cfg config.OSSConfig) (*QiniuKodoProvider, error) {
	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)

	region, err := storage.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	bucketDomain := cfg.Endpoint
	if bucketDomain == "" {
		bucketDomain = fmt.Sprintf("%s.%s", cfg.Bucket, region.RsHost)
	}
	if !strings.HasPrefix(bucketDomain, "http://") && !strings.HasPrefix(bucketDomain, "https://") {
		bucketDomain = "https://" + bucketDomain
	}
	logger.Infof("[qiniu] bucket: %s, domain: %s", cfg.Bucket, bucketDomain)

	return &QiniuKodoProvider{
		mac:          mac,
		bucketName:   cfg.Bucket,
		bucketDomain: bucketDomain,
		region:       region,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name 提供商名称
func (p *QiniuKodoProvider) Name() string { return "qiniu" }

func (p *QiniuKodoProvider) bucketManager() *storage.BucketManager {
	return storage.NewBucketManager(p.mac, &storage.Config{Region: p.region})
}

// UploadFile 表单上传，scope 带上 key 表示允许覆盖
func (p *QiniuKodoProvider) UploadFile(objectKey string, reader io.Reader, size int64, contentType string) error {
	putPolicy := storage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := storage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	}
	formUploader := storage.NewFormUploader(&cfg)
	ret := storage.PutRet{}
	putExtra := storage.PutExtra{MimeType: contentType}

	if err := formUploader.Put(context.Background(), &ret, upToken, objectKey, reader, size, &putExtra); err != nil {
		logger.Errorf("[qiniu] upload failed, key: %s, error: %v", objectKey, err)
		return fmt.Errorf("failed to upload file to qiniu kodo: %w", err)
	}
	logger.Debugf("[qiniu] uploaded %s, hash: %s", objectKey, ret.Hash)
	return nil
}

// DownloadFile 通过私有下载链接获取对象内容
func (p *QiniuKodoProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := storage.MakePrivateURL(p.mac, p.bucketDomain, objectKey, deadline)

	resp, err := p.httpClient.Get(privateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from qiniu kodo: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrObjectNotFound
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file, status: %s", resp.Status)
	}
}

// FileExists 检查文件是否存在
func (p *QiniuKodoProvider) FileExists(objectKey string) (bool, error) {
	_, err := p.bucketManager().Stat(p.bucketName, objectKey)
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in qiniu kodo: %w", err)
	}
	return true, nil
}

// TestConnection 尝试列出一个对象来验证认证信息
func (p *QiniuKodoProvider) TestConnection() error {
	_, _, _, _, err := p.bucketManager().ListFiles(p.bucketName, "", "", "", 1)
	if err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
