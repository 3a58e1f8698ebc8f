/*
 * @module service/cleanup/job_cleanup_service
 * @description 任务清理服务，负责定期清理过期的清洗任务记录和关联文件
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 启动即清理一次 -> 每日凌晨2点定时触发 -> 执行清理 -> 记录结果
 * @rules 确保清理不影响正在执行的任务；保留天数由环境变量JOB_RETENTION_DAYS控制
 * @dependencies github.com/robfig/cron/v3, service/jobs
 * @refs service/init.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"datacleaner-service/service/jobs"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
)

// DefaultJobRetentionDays 默认任务保留天数
const DefaultJobRetentionDays = 7

// 每日凌晨2点执行
const cleanupSchedule = "0 0 2 * * *"

// JobCleanupService 任务清理服务
type JobCleanupService struct {
	jobService *jobs.JobService
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
}

// NewJobCleanupService 创建任务清理服务实例
func NewJobCleanupService(jobService *jobs.JobService) *JobCleanupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobCleanupService{
		jobService: jobService,
		cron:       cron.New(cron.WithSeconds()),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动定时清理，启动时立即执行一次
func (s *JobCleanupService) Start() error {
	if s.started {
		return nil
	}

	go s.runCleanup()

	if _, err := s.cron.AddFunc(cleanupSchedule, s.runCleanup); err != nil {
		return fmt.Errorf("注册清理定时任务失败: %w", err)
	}
	s.cron.Start()
	s.started = true

	slog.Info("任务清理服务已启动", "schedule", cleanupSchedule, "retention_days", s.retentionDays())
	return nil
}

// Stop 停止定时清理
func (s *JobCleanupService) Stop() {
	if !s.started {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.started = false
	slog.Info("任务清理服务已停止")
}

// runCleanup 执行一轮清理
func (s *JobCleanupService) runCleanup() {
	startTime := time.Now()
	retentionDays := s.retentionDays()

	deleted, err := s.jobService.CleanupExpired(s.ctx, retentionDays)
	if err != nil {
		slog.Error("清理过期任务失败", "error", err)
		return
	}
	slog.Info("过期任务清理完成",
		"deleted_count", deleted,
		"retention_days", retentionDays,
		"duration_ms", time.Since(startTime).Milliseconds())
}

// retentionDays 读取保留天数配置，非法值回退默认
func (s *JobCleanupService) retentionDays() int {
	if v := os.Getenv("JOB_RETENTION_DAYS"); v != "" {
		if days := cast.ToInt(v); days > 0 {
			return days
		}
		slog.Warn("JOB_RETENTION_DAYS配置非法，使用默认值", "value", v, "default", DefaultJobRetentionDays)
	}
	return DefaultJobRetentionDays
}
