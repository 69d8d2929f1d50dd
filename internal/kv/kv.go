// Package kv 提供记录列表使用的键值持久化后端
// 每个键保存一个完整的值，写入总是整体覆盖
package kv

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// ErrNotExist 键不存在
var ErrNotExist = errors.New("kv: key does not exist")

// Store 键值存储接口
type Store interface {
	// Get 读取键对应的值，键不存在时返回的错误满足 errors.Is(err, ErrNotExist)
	Get(key string) ([]byte, error)
	// Set 写入键值，替换已有的值
	Set(key string, value []byte) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateKey 键只能包含字母、数字、点、下划线和连字符
// 文件后端和对象存储后端会把键直接拼进路径
func ValidateKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}

// Memory 基于map的内存存储，进程退出后数据丢失
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get 读取键值
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), v...), nil
}

// Set 写入键值
func (m *Memory) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}
