package database

import (
	"github.com/weiwangfds/javanotes/internal/logger"
	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
// 参数: db *gorm.DB - GORM数据库连接实例
// 返回值: error - 迁移失败时返回错误信息
func Migrate(db *gorm.DB) error {
	logger.Info("running database migrations")
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return err
	}
	logger.Info("database migrations complete")
	return nil
}
