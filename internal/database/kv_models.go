// Package database 定义了数据库连接和模型
package database

import "time"

// KVEntry 键值存储条目
// 每个键对应一个完整的值，写入时整体覆盖
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"` // 键名
	Value     []byte    `gorm:"not null" json:"value"`          // 序列化后的值
	UpdatedAt time.Time `json:"updated_at"`                     // 最后写入时间
}

// TableName 指定KVEntry模型对应的数据库表名
func (KVEntry) TableName() string {
	return "kv_entries"
}
