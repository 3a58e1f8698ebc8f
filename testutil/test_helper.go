/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models, service/dataset
 */

package testutil

import (
	"fmt"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 内存库按连接隔离，限制为单连接保证并发访问同一份数据
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.CleaningJob{}); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tdb.DB.Exec("DELETE FROM cleaning_jobs")
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// NewDataset 按列构造测试数据集，列顺序与调用顺序一致
func NewDataset(columns []string, data map[string][]interface{}) *dataset.Dataset {
	d := dataset.New()
	for _, col := range columns {
		if err := d.AddColumn(col, data[col]); err != nil {
			panic(fmt.Sprintf("failed to build test dataset: %v", err))
		}
	}
	return d
}

// NewAnalysisResult 构造带Raw字段的测试分析结果
// Raw为空的结果会被视为空等价结果，测试数据必须填充Raw
func NewAnalysisResult(raw map[string]interface{}) *models.AnalysisResult {
	result := &models.AnalysisResult{Raw: raw}
	if issues, ok := raw["potential_issues"].([]interface{}); ok {
		for _, item := range issues {
			entry, isMap := item.(map[string]interface{})
			if !isMap {
				continue
			}
			issue := models.PotentialIssue{}
			if v, ok := entry["column"].(string); ok {
				issue.Column = v
			}
			if v, ok := entry["issue"].(string); ok {
				issue.Issue = v
			}
			result.PotentialIssues = append(result.PotentialIssues, issue)
		}
	}
	if units, ok := raw["units"].(map[string]string); ok {
		result.Units = units
	}
	return result
}
