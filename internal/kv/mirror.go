package kv

import (
	"github.com/weiwangfds/javanotes/internal/logger"
)

// Mirror 写主存储后再尽力写入副本
// 副本写入失败只记录日志，不影响调用方；读取只走主存储
type Mirror struct {
	primary  Store
	replicas []Store
}

// NewMirror 创建镜像存储
func NewMirror(primary Store, replicas ...Store) *Mirror {
	return &Mirror{primary: primary, replicas: replicas}
}

// Get 从主存储读取
func (m *Mirror) Get(key string) ([]byte, error) {
	return m.primary.Get(key)
}

// Set 写入主存储，成功后同步副本
func (m *Mirror) Set(key string, value []byte) error {
	if err := m.primary.Set(key, value); err != nil {
		return err
	}
	for i, r := range m.replicas {
		if err := r.Set(key, value); err != nil {
			logger.Warnf("mirror replica %d failed to store %s: %v", i, key, err)
		}
	}
	return nil
}
