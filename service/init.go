/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、表迁移和各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs service/jobs, service/event, service/cleanup
 */

package service

import (
	"log"
	"os"

	"datacleaner-service/service/analysis"
	"datacleaner-service/service/cleanup"
	"datacleaner-service/service/database"
	"datacleaner-service/service/event"
	"datacleaner-service/service/jobs"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB                      *gorm.DB
	GlobalEventService      *event.EventService
	GlobalJobService        *jobs.JobService
	GlobalJobCleanupService *cleanup.JobCleanupService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// initDatabase 初始化数据库连接
// 设置了DATABASE_URL时使用PostgreSQL，否则回退到本地SQLite文件
func initDatabase() {
	var err error
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		DB, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	} else {
		dbPath := getEnvWithDefault("DB_PATH", "./datacleaner.db")
		DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	log.Println("数据库连接成功")
}

// runMigrations 执行表迁移
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库迁移完成")
}

// initServices 装配业务服务
func initServices() {
	GlobalEventService = event.NewEventService()

	provider := analysis.NewFromEnv()
	if provider == nil {
		log.Println("未配置ANALYSIS_API_URL，外部分析功能关闭")
	}

	var err error
	GlobalJobService, err = jobs.NewJobService(DB, GlobalEventService, provider)
	if err != nil {
		log.Fatalf("任务服务初始化失败: %v", err)
	}

	GlobalJobCleanupService = cleanup.NewJobCleanupService(GlobalJobService)
	if err := GlobalJobCleanupService.Start(); err != nil {
		log.Fatalf("任务清理服务启动失败: %v", err)
	}
}
