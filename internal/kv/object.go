package kv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/weiwangfds/javanotes/internal/service/oss"
)

// ObjectStore 把对象存储当作键值存储使用
// 对象路径为 <prefix>/<key>.json
type ObjectStore struct {
	provider oss.Provider
	prefix   string
}

// NewObjectStore 创建对象存储后端
func NewObjectStore(provider oss.Provider, prefix string) *ObjectStore {
	return &ObjectStore{provider: provider, prefix: prefix}
}

func (s *ObjectStore) objectKey(key string) string {
	return path.Join(s.prefix, key+".json")
}

// Get 先确认对象存在再下载，不存在时返回 ErrNotExist
func (s *ObjectStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	exists, err := s.provider.FileExists(s.objectKey(key))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotExist
	}

	body, err := s.provider.DownloadFile(s.objectKey(key))
	if err != nil {
		if errors.Is(err, oss.ErrObjectNotFound) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", s.objectKey(key), err)
	}
	return data, nil
}

// Set 上传对象，覆盖旧版本
func (s *ObjectStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.provider.UploadFile(s.objectKey(key), bytes.NewReader(value), int64(len(value)), "application/json")
}
