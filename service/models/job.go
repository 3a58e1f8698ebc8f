/*
 * @module service/models/job
 * @description 清洗任务模型定义，记录任务状态、进度、各阶段报告和文件路径
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow uploaded -> processing -> completed/failed
 * @rules 任务内存数据集归当次运行独占，模型仅持久化序列化后的报告和文件路径
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/jobs
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 清洗任务状态
const (
	JobStatusUploaded   = "uploaded"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// CleaningJob 清洗任务模型
type CleaningJob struct {
	ID           string     `gorm:"type:uuid;primary_key" json:"id"`
	FileName     string     `gorm:"not null" json:"file_name"`
	Status       string     `gorm:"not null;default:'uploaded';index" json:"status"`
	Progress     int        `gorm:"not null;default:0" json:"progress"`
	CurrentStage string     `json:"current_stage"`
	UploadPath   string     `gorm:"not null" json:"-"`
	OutputPath   string     `json:"-"`
	RowCount     int        `json:"row_count"`
	ColumnCount  int        `json:"column_count"`
	FinalReport  JSONB      `gorm:"type:jsonb" json:"final_report,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// BeforeCreate 创建前钩子
func (j *CleaningJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// ProgressEvent 任务进度事件，通过SSE推送
type ProgressEvent struct {
	JobID     string                 `json:"job_id"`
	EventType string                 `json:"event_type"` // connected, progress, completed, failed
	Status    string                 `json:"status"`
	Progress  int                    `json:"progress"`
	Stage     string                 `json:"stage,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
