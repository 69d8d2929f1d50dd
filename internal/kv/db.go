package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/weiwangfds/javanotes/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore 基于数据库表 kv_entries 的存储
type DBStore struct {
	db *gorm.DB
}

// NewDBStore 创建数据库存储，db 需要已经完成迁移
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// Get 按主键读取
func (s *DBStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var entry database.KVEntry
	if err := s.db.Where(&database.KVEntry{Key: key}).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("querying %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set 按主键 upsert
func (s *DBStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	entry := database.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
