/*
 * @module service/database/database
 * @description 数据库迁移模块，负责业务表的自动迁移
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 应用启动 -> 自动迁移 -> 服务就绪
 * @rules 迁移失败视为致命错误，由调用方终止启动
 * @dependencies gorm.io/gorm, service/models
 * @refs service/init.go
 */

package database

import (
	"fmt"

	"datacleaner-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 执行业务表自动迁移
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.CleaningJob{}); err != nil {
		return fmt.Errorf("清洗任务表迁移失败: %w", err)
	}
	return nil
}
