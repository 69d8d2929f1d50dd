package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjk/common/atomicfile"
)

// FileStore 每个键对应目录下的一个文件
type FileStore struct {
	dir string
}

// NewFileStore 创建文件存储，目录不存在时自动创建
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating kv directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get 读取键对应文件的全部内容
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Set 通过 atomicfile 先写同目录下的临时文件，Close 时 fsync 再 rename 覆盖目标
// 写到一半失败时原文件保持不变
func (s *FileStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	f, err := atomicfile.New(s.path(key))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer f.RemoveIfNotClosed()

	if _, err := f.Write(value); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
