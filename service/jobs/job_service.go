/*
 * @module service/jobs/job_service
 * @description 清洗任务业务服务：文件接收、任务生命周期管理、流水线异步执行、结果文件产出和过期清理
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 上传建档 -> 异步执行流水线 -> 进度持久化并广播 -> 产出文件与报告 -> 过期清理
 * @rules 上传时即校验CSV可解析；同一任务不允许并发执行；失败任务保留错误信息供查询
 * @dependencies gorm.io/gorm, service/pipeline, service/event, service/dataset
 * @refs api/controllers/job_controller.go, service/cleanup
 */

package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datacleaner-service/service/analysis"
	"datacleaner-service/service/dataset"
	"datacleaner-service/service/event"
	"datacleaner-service/service/models"
	"datacleaner-service/service/pipeline"

	"gorm.io/gorm"
)

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// JobService 清洗任务业务服务
type JobService struct {
	db        *gorm.DB
	events    *event.EventService
	pipeline  *pipeline.Pipeline
	uploadDir string
	outputDir string
}

// NewJobService 创建任务服务实例并准备文件目录
func NewJobService(db *gorm.DB, events *event.EventService, provider analysis.Provider) (*JobService, error) {
	s := &JobService{
		db:        db,
		events:    events,
		pipeline:  pipeline.New(provider),
		uploadDir: getEnvWithDefault("UPLOAD_DIR", "./uploads"),
		outputDir: getEnvWithDefault("OUTPUT_DIR", "./outputs"),
	}
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return s, nil
}

// CreateJob 接收上传文件并建立任务档案
// 仅接受.csv扩展名；上传时即做一次完整解析，不可解析的文件直接拒绝
func (s *JobService) CreateJob(fileName string, file io.Reader) (*models.CleaningJob, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return nil, fmt.Errorf("仅支持CSV文件，收到: %s", fileName)
	}

	job := &models.CleaningJob{
		FileName: fileName,
		Status:   models.JobStatusUploaded,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("创建任务记录失败: %w", err)
	}

	uploadPath := filepath.Join(s.uploadDir, job.ID+".csv")
	out, err := os.Create(uploadPath)
	if err != nil {
		s.db.Delete(job)
		return nil, fmt.Errorf("保存上传文件失败: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(uploadPath)
		s.db.Delete(job)
		return nil, fmt.Errorf("写入上传文件失败: %w", err)
	}
	out.Close()

	d, err := s.loadDataset(uploadPath)
	if err != nil {
		os.Remove(uploadPath)
		s.db.Delete(job)
		return nil, fmt.Errorf("CSV解析失败: %w", err)
	}

	job.UploadPath = uploadPath
	job.RowCount = d.RowCount()
	job.ColumnCount = d.ColumnCount()
	if err := s.db.Save(job).Error; err != nil {
		return nil, fmt.Errorf("更新任务记录失败: %w", err)
	}

	slog.Info("任务已创建", "job_id", job.ID, "file", fileName, "rows", job.RowCount, "cols", job.ColumnCount)
	return job, nil
}

// ProcessJob 启动任务的异步清洗，任务须处于uploaded或failed状态
func (s *JobService) ProcessJob(jobID string) (*models.CleaningJob, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusProcessing {
		return nil, fmt.Errorf("任务 %s 正在执行中", jobID)
	}
	if job.Status == models.JobStatusCompleted {
		return nil, fmt.Errorf("任务 %s 已完成", jobID)
	}

	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.Progress = 0
	job.CurrentStage = ""
	job.ErrorMessage = ""
	job.StartedAt = &now
	if err := s.db.Save(job).Error; err != nil {
		return nil, fmt.Errorf("更新任务状态失败: %w", err)
	}

	go s.runPipeline(job.ID, job.UploadPath)
	return job, nil
}

// runPipeline 执行流水线并维护任务状态，进度变化同时持久化和广播
func (s *JobService) runPipeline(jobID, uploadPath string) {
	ctx := context.Background()

	d, err := s.loadDataset(uploadPath)
	if err != nil {
		s.failJob(jobID, fmt.Errorf("加载数据集失败: %w", err))
		return
	}

	progress := func(stage string, pct int) {
		s.db.Model(&models.CleaningJob{}).Where("id = ?", jobID).
			Updates(map[string]interface{}{"progress": pct, "current_stage": stage})
		s.events.Publish(jobID, &models.ProgressEvent{
			EventType: "progress",
			Status:    models.JobStatusProcessing,
			Progress:  pct,
			Stage:     stage,
		})
	}

	state, err := s.pipeline.Run(ctx, d, progress)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	outputPath := filepath.Join(s.outputDir, jobID+"_cleaned.csv")
	if err := s.saveDataset(state.Dataset, outputPath); err != nil {
		s.failJob(jobID, fmt.Errorf("保存清洗结果失败: %w", err))
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"progress":     100,
		"output_path":  outputPath,
		"row_count":    state.Dataset.RowCount(),
		"column_count": state.Dataset.ColumnCount(),
		"final_report": models.JSONB(state.FinalReport),
		"finished_at":  &now,
	}
	if err := s.db.Model(&models.CleaningJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		slog.Error("持久化任务结果失败", "job_id", jobID, "error", err)
	}

	s.events.Publish(jobID, &models.ProgressEvent{
		EventType: "completed",
		Status:    models.JobStatusCompleted,
		Progress:  100,
		Data: map[string]interface{}{
			"nrows": state.Dataset.RowCount(),
			"ncols": state.Dataset.ColumnCount(),
		},
	})
	slog.Info("任务完成", "job_id", jobID)
}

// failJob 标记任务失败并广播失败事件
func (s *JobService) failJob(jobID string, cause error) {
	slog.Error("任务失败", "job_id", jobID, "error", cause)
	now := time.Now()
	s.db.Model(&models.CleaningJob{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":        models.JobStatusFailed,
		"error_message": cause.Error(),
		"finished_at":   &now,
	})
	s.events.Publish(jobID, &models.ProgressEvent{
		EventType: "failed",
		Status:    models.JobStatusFailed,
		Data:      map[string]interface{}{"error": cause.Error()},
	})
}

// loadDataset 从磁盘加载CSV数据集
func (s *JobService) loadDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.LoadCSV(f)
}

// saveDataset 将数据集写出到磁盘
func (s *JobService) saveDataset(d *dataset.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return dataset.SaveCSV(f, d)
}

// GetJob 按ID查询任务
func (s *JobService) GetJob(jobID string) (*models.CleaningJob, error) {
	var job models.CleaningJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// NormalizePagination 将分页参数收敛到有效区间：页码最小为1，每页1到100条，默认20条
// 分页默认值只在这里定义，调用方用返回值构造响应
func NormalizePagination(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// ListJobs 按创建时间倒序分页查询任务
func (s *JobService) ListJobs(page, size int) ([]models.CleaningJob, int64, error) {
	page, size = NormalizePagination(page, size)
	var total int64
	if err := s.db.Model(&models.CleaningJob{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var jobs []models.CleaningJob
	err := s.db.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&jobs).Error
	return jobs, total, err
}

// OutputFile 返回已完成任务的清洗结果文件路径
func (s *JobService) OutputFile(jobID string) (string, string, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return "", "", err
	}
	if job.Status != models.JobStatusCompleted || job.OutputPath == "" {
		return "", "", fmt.Errorf("任务 %s 尚无清洗结果", jobID)
	}
	base := strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName))
	return job.OutputPath, base + "_cleaned.csv", nil
}

// CleanupExpired 删除超过保留期的任务及其文件，返回删除数量
func (s *JobService) CleanupExpired(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var expired []models.CleaningJob
	if err := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("查询过期任务失败: %w", err)
	}

	var deleted int64
	for _, job := range expired {
		for _, path := range []string{job.UploadPath, job.OutputPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("删除任务文件失败", "job_id", job.ID, "path", path, "error", err)
			}
		}
		if err := s.db.WithContext(ctx).Delete(&models.CleaningJob{}, "id = ?", job.ID).Error; err != nil {
			slog.Error("删除过期任务记录失败", "job_id", job.ID, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
