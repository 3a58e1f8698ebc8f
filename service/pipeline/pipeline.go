/*
 * @module service/pipeline/pipeline
 * @description 清洗流水线运行器，按固定顺序驱动各阶段并上报进度里程碑
 * @architecture 管道模式 - 顺序阶段执行
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 模式校验 -> 缺失值填充 -> 异常值处理 -> 语义转换 -> 报告汇总
 * @rules 阶段顺序固定；结构性失败立即中止并返回错误；单元格级问题在阶段内部消化
 * @dependencies log/slog, service/analysis, service/cleaning, service/dataset
 * @refs stages.go
 */

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datacleaner-service/service/analysis"
	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"
)

// ProgressFunc 进度回调，stage为当前阶段名，progress为0-100里程碑
type ProgressFunc func(stage string, progress int)

// State 流水线共享状态，阶段间通过它传递数据集和各阶段报告
type State struct {
	Dataset      *dataset.Dataset
	Analysis     *models.AnalysisResult
	AnalysisText string
	Schema       *models.SchemaReport
	Imputation   *models.ImputationReport
	Outliers     *models.OutlierReport
	Transforms   *models.TransformationReport
	FinalReport  map[string]interface{}
}

// Stage 流水线阶段
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// Pipeline 清洗流水线
type Pipeline struct {
	stages []Stage
}

// New 构建标准五阶段流水线
// provider为nil时跳过外部分析，转换阶段得到零任务
func New(provider analysis.Provider) *Pipeline {
	return &Pipeline{
		stages: []Stage{
			&schemaStage{provider: provider},
			&imputeStage{},
			&outlierStage{},
			&transformStage{},
			&reportStage{},
		},
	}
}

// Run 对数据集执行完整流水线
// 每个阶段进入时和完成时各上报一次进度里程碑
func (p *Pipeline) Run(ctx context.Context, d *dataset.Dataset, progress ProgressFunc) (*State, error) {
	if d == nil || d.ColumnCount() == 0 {
		return nil, fmt.Errorf("数据集为空，无法执行清洗")
	}
	if progress == nil {
		progress = func(string, int) {}
	}

	st := &State{Dataset: d}
	step := 100 / (len(p.stages) * 2)

	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("流水线被取消: %w", err)
		}
		progress(stage.Name(), (i*2+1)*step)
		started := time.Now()
		if err := stage.Run(ctx, st); err != nil {
			slog.Error("流水线阶段失败", "stage", stage.Name(), "error", err)
			return nil, fmt.Errorf("阶段 %s 失败: %w", stage.Name(), err)
		}
		slog.Info("流水线阶段完成", "stage", stage.Name(), "duration", time.Since(started))
		progress(stage.Name(), (i+1)*2*step)
	}
	return st, nil
}
